package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRecordWritesOneJSONLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 30)
	defer w.Close()

	if err := w.Record("dev1", "phase", map[string]any{"phase": "Active"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Record("dev1", "phase", map[string]any{"phase": "Closed"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	current := filepath.Join(dir, "dev1", "current.jsonl")
	f, err := os.Open(current)
	if err != nil {
		t.Fatalf("open current.jsonl: %v", err)
	}
	defer f.Close()

	var count int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		if e.Device != "dev1" {
			t.Fatalf("device = %q, want dev1", e.Device)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("lines = %d, want 2", count)
	}
}

func TestRotateClosesAndStartsFresh(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 30)
	defer w.Close()

	w.Record("dev1", "phase", nil)
	if err := w.Rotate("dev1"); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	w.Record("dev1", "phase", nil)

	logs, err := w.ListLogs("dev1")
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2 (the pre-rotation file and the fresh one)", len(logs))
	}
}
