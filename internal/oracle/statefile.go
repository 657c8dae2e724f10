package oracle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type scanState struct {
	ToBlock     uint64 `json:"to_block"`
	WindowIndex int    `json:"window_index"`
	UpdatedAt   string `json:"updated_at"`
}

// ScanStateFile persists the scan cursor to disk so an interrupted scan can
// resume where it stopped.
type ScanStateFile struct {
	path    string
	enabled bool
}

func NewScanStateFile(path string, enabled bool) *ScanStateFile {
	return &ScanStateFile{path: path, enabled: enabled}
}

func (f *ScanStateFile) Load() (ScanCursor, bool, error) {
	if !f.enabled {
		return ScanCursor{}, false, nil
	}

	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ScanCursor{}, false, nil
		}
		return ScanCursor{}, false, fmt.Errorf("stat scan state: %w", err)
	}
	if stat.IsDir() {
		return ScanCursor{}, false, fmt.Errorf("scan state path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return ScanCursor{}, false, fmt.Errorf("read scan state: %w", err)
	}

	var state scanState
	if err := json.Unmarshal(data, &state); err != nil {
		return ScanCursor{}, false, fmt.Errorf("parse scan state: %w", err)
	}

	return ScanCursor{ToBlock: state.ToBlock, WindowIndex: state.WindowIndex}, true, nil
}

func (f *ScanStateFile) Save(cursor ScanCursor) error {
	if !f.enabled {
		return nil
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create scan state dir: %w", err)
		}
	}

	state := scanState{
		ToBlock:     cursor.ToBlock,
		WindowIndex: cursor.WindowIndex,
		UpdatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal scan state: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write scan state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename scan state: %w", err)
	}

	return nil
}
