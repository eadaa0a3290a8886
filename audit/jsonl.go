package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/0202alcc/luvatrix/logx"
)

// JSONLSink appends one JSON object per line to a file, opened in
// append mode and flushed synchronously on every Log call.
type JSONLSink struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink opens (creating if needed) the JSONL file at path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{path: path, file: f}, nil
}

func (s *JSONLSink) Log(entry Entry) error {
	row, err := marshalRow(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row = append(row, '\n')
	_, err = s.file.Write(row)
	log := logx.WithFields(logx.SensorFields(entry.SensorType)).WithField("action", entry.Action)
	log.WarnIf(err, "jsonl audit sink write failed")
	return err
}

func (s *JSONLSink) Summarize() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := Summary{ByAction: map[string]int{}, BySensor: map[string]int{}}
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return summary, nil
	}
	if err != nil {
		return summary, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		summary.Total++
		summary.ByAction[stringField(row, "action")]++
		summary.BySensor[stringField(row, "sensor_type")]++
	}
	return summary, scanner.Err()
}

func stringField(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// Prune keeps only the last maxRows lines, returning how many were
// dropped. A non-positive maxRows is a no-op.
func (s *JSONLSink) Prune(maxRows int) (int, error) {
	if maxRows <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if len(lines) <= maxRows {
		return 0, nil
	}
	dropped := len(lines) - maxRows
	kept := lines[dropped:]

	if err := s.file.Close(); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	for _, line := range kept {
		if _, err := f.Write(line); err != nil {
			f.Close()
			return 0, err
		}
		if _, err := f.Write([]byte("\n")); err != nil {
			f.Close()
			return 0, err
		}
	}
	s.file = f
	return dropped, nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
