package audit

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/0202alcc/luvatrix/logx"
)

// SQLSink records audit entries in a SQLite database with one row per
// entry, grouped by id for ordered pruning.
type SQLSink struct {
	db *sql.DB
}

// NewSQLSink opens (creating if needed) a SQLite database at path and
// ensures the audit_events table exists.
func NewSQLSink(path string) (*SQLSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts_ns INTEGER,
			action TEXT,
			sensor_type TEXT,
			actor TEXT,
			payload_json TEXT
		)
	`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLSink{db: db}, nil
}

func (s *SQLSink) Log(entry Entry) error {
	payload, err := marshalRow(entry)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO audit_events (ts_ns, action, sensor_type, actor, payload_json) VALUES (?, ?, ?, ?, ?)`,
		entry.TimestampNS, entry.Action, entry.SensorType, entry.Actor, string(payload),
	)
	log := logx.WithFields(logx.SensorFields(entry.SensorType)).WithField("action", entry.Action)
	log.WarnIf(err, "sqlite audit sink insert failed")
	return err
}

func (s *SQLSink) Summarize() (Summary, error) {
	summary := Summary{ByAction: map[string]int{}, BySensor: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&summary.Total); err != nil {
		return summary, err
	}

	actionRows, err := s.db.Query(`SELECT action, COUNT(*) FROM audit_events GROUP BY action`)
	if err != nil {
		return summary, err
	}
	defer actionRows.Close()
	for actionRows.Next() {
		var action string
		var count int
		if err := actionRows.Scan(&action, &count); err != nil {
			return summary, err
		}
		summary.ByAction[action] = count
	}

	sensorRows, err := s.db.Query(`SELECT sensor_type, COUNT(*) FROM audit_events GROUP BY sensor_type`)
	if err != nil {
		return summary, err
	}
	defer sensorRows.Close()
	for sensorRows.Next() {
		var sensorType string
		var count int
		if err := sensorRows.Scan(&sensorType, &count); err != nil {
			return summary, err
		}
		summary.BySensor[sensorType] = count
	}

	return summary, nil
}

// Prune keeps only the newest maxRows rows, returning how many were
// deleted. A non-positive maxRows is a no-op.
func (s *SQLSink) Prune(maxRows int) (int, error) {
	if maxRows <= 0 {
		return 0, nil
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_events`).Scan(&total); err != nil {
		return 0, err
	}
	overflow := total - maxRows
	if overflow <= 0 {
		return 0, nil
	}

	if _, err := s.db.Exec(
		`DELETE FROM audit_events WHERE id IN (SELECT id FROM audit_events ORDER BY id ASC LIMIT ?)`,
		overflow,
	); err != nil {
		return 0, err
	}
	return overflow, nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}
