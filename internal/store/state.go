package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type stateFile struct {
	UpdatedAt time.Time                           `json:"updated_at"`
	Records   map[Kind]map[string]json.RawMessage `json:"records"`
}

// LoadState reads the arena from a JSON file. Returns an empty arena if the
// file doesn't exist.
func LoadState(filePath string) (map[Kind]map[string][]byte, error) {
	data := make(map[Kind]map[string][]byte)
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var sf stateFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	for kind, recs := range sf.Records {
		data[kind] = make(map[string][]byte, len(recs))
		for k, v := range recs {
			data[kind][k] = []byte(v)
		}
	}
	return data, nil
}

// SaveState writes the arena to a JSON file, replacing it atomically.
func SaveState(filePath string, data map[Kind]map[string][]byte) error {
	sf := stateFile{UpdatedAt: time.Now(), Records: make(map[Kind]map[string]json.RawMessage, len(data))}
	for kind, recs := range data {
		sf.Records[kind] = make(map[string]json.RawMessage, len(recs))
		for k, v := range recs {
			sf.Records[kind][k] = json.RawMessage(v)
		}
	}
	out, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, filePath)
}
