package rollbacklog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRollback_CreateDirWriteOverwriteDelete(t *testing.T) {
	root := t.TempDir()
	workDir := t.TempDir()
	store := NewStore(root)

	tx, err := store.Open("test transaction")
	if err != nil {
		t.Fatal(err)
	}

	dPath := filepath.Join(workDir, "d")
	if err := os.Mkdir(dPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := tx.Append(Operation{Kind: OpCreateDirectory, Path: dPath, CreatedByMe: true}); err != nil {
		t.Fatal(err)
	}

	aPath := filepath.Join(dPath, "a")
	if err := os.WriteFile(aPath, []byte("a-content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tx.Append(Operation{Kind: OpCreateFile, Path: aPath}); err != nil {
		t.Fatal(err)
	}

	bPath := filepath.Join(dPath, "b")
	if err := os.WriteFile(bPath, []byte("original-b"), 0o644); err != nil {
		t.Fatal(err)
	}
	backupID, err := tx.BackupFile("b-op", bPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bPath, []byte("overwritten-b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := tx.Append(Operation{Kind: OpWriteFile, Path: bPath, BackupID: backupID}); err != nil {
		t.Fatal(err)
	}

	res, err := tx.Rollback()
	if err != nil {
		t.Fatalf("rollback should fully succeed: %v (%v)", err, res.Failures)
	}
	if res.Status != StatusRolledBack {
		t.Fatalf("expected rolled_back, got %s", res.Status)
	}

	if _, err := os.Stat(dPath); !os.IsNotExist(err) {
		t.Errorf("expected %s removed, stat err=%v", dPath, err)
	}
}

func TestRollback_MissingPreImageReportsPartial(t *testing.T) {
	root := t.TempDir()
	workDir := t.TempDir()
	store := NewStore(root)

	tx, err := store.Open("partial")
	if err != nil {
		t.Fatal(err)
	}

	gone := filepath.Join(workDir, "gone.txt")
	if err := tx.Append(Operation{Kind: OpDeleteFile, Path: gone, BackupID: ""}); err != nil {
		t.Fatal(err)
	}

	res, err := tx.Rollback()
	if err == nil {
		t.Fatal("expected rollback-incomplete error")
	}
	if res.Status != StatusPartial || len(res.Failures) != 1 {
		t.Fatalf("expected one partial failure, got %+v", res)
	}
}

func TestStore_LastReturnsMostRecent(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)
	if _, err := store.Open("first"); err != nil {
		t.Fatal(err)
	}
	second, err := store.Open("second")
	if err != nil {
		t.Fatal(err)
	}
	last, err := store.Last()
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.ID != second.ID {
		t.Fatalf("expected last transaction %s, got %+v", second.ID, last)
	}
}
