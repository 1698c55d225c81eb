package recovery

import (
	"path/filepath"
	"testing"
)

func TestRecords_ReflectsRecordedSuccesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	if got := h.Records(); len(got) != 0 {
		t.Fatalf("expected no records on a fresh history, got %d", len(got))
	}

	if err := h.RecordSuccess("sig-a", Retry, "go build ./..."); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if err := h.RecordSuccess("sig-a", Retry, "go build ./..."); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	records := h.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SuccessCount != 2 {
		t.Fatalf("expected success count 2, got %d", records[0].SuccessCount)
	}
	if records[0].ErrorSignature != "sig-a" || records[0].StrategyCommand != "go build ./..." {
		t.Fatalf("unexpected record contents: %+v", records[0])
	}
}

func TestRecords_ReloadedFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if err := h.RecordSuccess("sig-b", ModifyCommand, "npm install"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	reloaded, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory (reload): %v", err)
	}
	records := reloaded.Records()
	if len(records) != 1 || records[0].ErrorSignature != "sig-b" {
		t.Fatalf("expected reloaded record for sig-b, got %+v", records)
	}
}
