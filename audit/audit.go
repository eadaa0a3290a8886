// Package audit implements durable audit sinks for sensor, energy, and
// app capability events: an append-only JSONL sink and a SQLite sink,
// both summarizable and prunable to a maximum row count.
package audit

import "encoding/json"

// Entry is one audit row. Fields beyond the indexed ones travel in
// Payload and are preserved verbatim by both sinks.
type Entry struct {
	TimestampNS int64
	Action      string
	SensorType  string
	Actor       string
	Payload     map[string]any
}

// Summary reports row counts grouped by action and sensor type.
type Summary struct {
	Total    int
	ByAction map[string]int
	BySensor map[string]int
}

// Sink durably records audit Entry rows.
type Sink interface {
	Log(entry Entry) error
	Summarize() (Summary, error)
	Prune(maxRows int) (int, error)
	Close() error
}

func marshalRow(entry Entry) ([]byte, error) {
	row := map[string]any{
		"ts_ns":       entry.TimestampNS,
		"action":      entry.Action,
		"sensor_type": entry.SensorType,
		"actor":       entry.Actor,
	}
	for k, v := range entry.Payload {
		if _, reserved := row[k]; reserved {
			continue
		}
		row[k] = v
	}
	return json.Marshal(row)
}
