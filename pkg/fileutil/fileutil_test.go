package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("Exists returned true for non-existent file")
	}

	path := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists returned false for existing file")
	}
}

func TestIsNonEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	emptyPath := filepath.Join(tmpDir, "empty.bin")
	if err := os.WriteFile(emptyPath, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if IsNonEmpty(emptyPath) {
		t.Error("IsNonEmpty returned true for empty file")
	}

	fullPath := filepath.Join(tmpDir, "full.bin")
	if err := os.WriteFile(fullPath, []byte{1}, 0644); err != nil {
		t.Fatal(err)
	}
	if !IsNonEmpty(fullPath) {
		t.Error("IsNonEmpty returned false for non-empty file")
	}
}

func TestRecordCount(t *testing.T) {
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "index.bin")
	if err := os.WriteFile(path, make([]byte, 24), 0644); err != nil {
		t.Fatal(err)
	}
	n, err := RecordCount(path, 8)
	if err != nil {
		t.Fatalf("RecordCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("RecordCount = %d, want 3", n)
	}

	if _, err := RecordCount(path, 48); !errors.Is(err, ErrMisaligned) {
		t.Errorf("RecordCount(48) = %v, want ErrMisaligned", err)
	}

	empty := filepath.Join(tmpDir, "empty.bin")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := RecordCount(empty, 8); err == nil {
		t.Error("RecordCount(empty) should error")
	}

	if _, err := RecordCount(filepath.Join(tmpDir, "missing"), 8); err == nil {
		t.Error("RecordCount(missing) should error")
	}
}

func TestWriteTmpThenMove(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "out", "final.4spl")

	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		return os.WriteFile(tmpPath, []byte("test content"), 0644)
	})
	if err != nil {
		t.Fatalf("WriteTmpThenMove failed: %v", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(content) != "test content" {
		t.Errorf("content = %q, want %q", content, "test content")
	}

	if Exists(filepath.Join(tmpDir, "final.4spl.tmp")) {
		t.Error("temp file should not exist after move")
	}
}

func TestWriteTmpThenMoveError(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "final.4spl")

	wantErr := errors.New("write failed")
	err := WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		if err := os.WriteFile(tmpPath, []byte("partial"), 0644); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("WriteTmpThenMove error = %v, want %v", err, wantErr)
	}
	if Exists(outPath) {
		t.Error("output should not exist after error")
	}
	if Exists(outPath + ".tmp") {
		t.Error("temp file should be removed after error")
	}
}

func TestCleanupTmpFiles(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"a.4spl.tmp", "b.tmp", "keep.4spl"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanupTmpFiles(tmpDir); err != nil {
		t.Fatalf("CleanupTmpFiles failed: %v", err)
	}

	if Exists(filepath.Join(tmpDir, "a.4spl.tmp")) || Exists(filepath.Join(tmpDir, "b.tmp")) {
		t.Error(".tmp files should be removed")
	}
	if !Exists(filepath.Join(tmpDir, "keep.4spl")) {
		t.Error("non-tmp file should be kept")
	}

	if err := CleanupTmpFiles(filepath.Join(tmpDir, "missing")); err != nil {
		t.Errorf("CleanupTmpFiles(missing) = %v, want nil", err)
	}
}
