// Package journal records the session lifecycle (phase transitions, queue
// updates, errors) as one JSON line per event, per device, for postmortem
// debugging of a remote-lab session. Adapted from the console server's log
// writer: same rotation/retention/current.log-symlink skeleton, stripped of
// its ANSI/BMC-console cleaning since this domain has no serial console
// text to clean.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Entry is one journaled event line.
type Entry struct {
	Time   time.Time      `json:"time"`
	Device string         `json:"device"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Writer appends session-lifecycle entries as JSON lines, one rotating file
// per device, with age-based retention.
type Writer struct {
	basePath      string
	retentionDays int

	mu           sync.Mutex
	files        map[string]*os.File
	lastRotation map[string]time.Time
}

func NewWriter(basePath string, retentionDays int) *Writer {
	return &Writer{
		basePath:      basePath,
		retentionDays: retentionDays,
		files:         make(map[string]*os.File),
		lastRotation:  make(map[string]time.Time),
	}
}

// Record appends one structured event for device, stamped with the current
// time.
func (w *Writer) Record(device, kind string, fields map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.getOrCreateFile(device)
	if err != nil {
		return err
	}

	e := Entry{Time: time.Now(), Device: device, Kind: kind, Fields: fields}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: marshal entry: %w", err)
	}
	line = append(line, '\n')
	_, err = f.Write(line)
	return err
}

func (w *Writer) getOrCreateFile(device string) (*os.File, error) {
	if f, exists := w.files[device]; exists {
		return f, nil
	}

	dir := filepath.Join(w.basePath, device)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}

	symlinkPath := filepath.Join(dir, "current.jsonl")
	if target, err := os.Readlink(symlinkPath); err == nil {
		existingPath := filepath.Join(dir, target)
		if f, err := os.OpenFile(existingPath, os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			w.files[device] = f
			return f, nil
		}
	}

	filename := time.Now().Format("2006-01-02_15-04-05.000000000") + ".jsonl"
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal: create file: %w", err)
	}
	w.files[device] = f

	os.Remove(symlinkPath)
	os.Symlink(filename, symlinkPath)

	log.Debugf("journal: opened %s", path)
	return f, nil
}

// CanRotate reports whether at least 2 minutes have passed since the last
// Rotate for device. Rotate itself does not check it.
func (w *Writer) CanRotate(device string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastRotation[device]; ok && time.Since(last) < 2*time.Minute {
		return false
	}
	return true
}

// Rotate closes the current file for device so the next Record call opens a
// fresh one, e.g. at the start of a new session.
func (w *Writer) Rotate(device string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f, exists := w.files[device]; exists {
		f.Close()
		delete(w.files, device)
	}
	os.Remove(filepath.Join(w.basePath, device, "current.jsonl"))
	w.lastRotation[device] = time.Now()
	return nil
}

// ListLogs returns journal filenames for device, newest first.
func (w *Writer) ListLogs(device string) ([]string, error) {
	dir := filepath.Join(w.basePath, device)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	type logFile struct {
		name    string
		modTime time.Time
	}
	var found []logFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" || e.Name() == "current.jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, logFile{name: e.Name(), modTime: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].modTime.After(found[j].modTime) })

	names := make([]string, len(found))
	for i, l := range found {
		names[i] = l.name
	}
	return names, nil
}

// Close flushes and closes every open device file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.files {
		f.Close()
	}
	return nil
}

// Cleanup removes journal files older than retentionDays.
func (w *Writer) Cleanup() {
	if w.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	entries, err := os.ReadDir(w.basePath)
	if err != nil {
		return
	}
	for _, deviceDir := range entries {
		if !deviceDir.IsDir() {
			continue
		}
		dir := filepath.Join(w.basePath, deviceDir.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".jsonl" || f.Name() == "current.jsonl" {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				os.Remove(filepath.Join(dir, f.Name()))
			}
		}
	}
}
