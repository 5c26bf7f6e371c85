package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
)

// ErrCacheMiss is returned by a Store that holds no entry for a location.
var ErrCacheMiss = errors.New("weather cache miss")

// Entry is a cached snapshot and the time it was stored.
type Entry struct {
	StoredAt time.Time
	Snapshot domain.WeatherSnapshot
}

// Store persists weather entries between runs.
type Store interface {
	Get(ctx context.Context, location string) (Entry, error)
	Put(ctx context.Context, location string, e Entry) error
	Clear(ctx context.Context, location string) error
}

// cacheDoc is the on-disk layout: a timestamp plus the provider payload.
type cacheDoc struct {
	TS   string       `json:"ts"`
	Data cachePayload `json:"data"`
}

type cachePayload struct {
	Weather []weatherDesc `json:"weather"`
	Main    *mainBlock    `json:"main"`
	Name    string        `json:"name"`
}

type weatherDesc struct {
	Description string `json:"description"`
}

type mainBlock struct {
	Temp float64 `json:"temp"`
}

func encodeEntry(e Entry) ([]byte, error) {
	doc := cacheDoc{
		TS: e.StoredAt.UTC().Format(time.RFC3339Nano),
		Data: cachePayload{
			Weather: []weatherDesc{{Description: e.Snapshot.Description}},
			Main:    &mainBlock{Temp: e.Snapshot.TemperatureCelsius},
			Name:    e.Snapshot.Location,
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode weather cache: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var doc cacheDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Entry{}, fmt.Errorf("decode weather cache: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, doc.TS)
	if err != nil {
		return Entry{}, fmt.Errorf("parse weather cache timestamp: %w", err)
	}
	if len(doc.Data.Weather) == 0 || doc.Data.Main == nil {
		return Entry{}, errors.New("weather cache payload incomplete")
	}
	return Entry{
		StoredAt: ts,
		Snapshot: domain.WeatherSnapshot{
			FetchedAt:          ts,
			Location:           doc.Data.Name,
			Description:        doc.Data.Weather[0].Description,
			TemperatureCelsius: doc.Data.Main.Temp,
		},
	}, nil
}
