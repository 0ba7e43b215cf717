package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func Test_reCreate(t *testing.T) {
	tempRoot := t.TempDir()

	dir := filepath.Join(tempRoot, "files")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("failed to make a temp subdir: %v", err)
	}
	for _, file := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, []byte{}, 0755); err != nil {
			t.Fatalf("failed to write a file: %v", err)
		}
	}

	if err := ReCreate(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty, err := DirIsEmpty(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if !empty {
		t.Errorf("expected %q to be deemed empty", dir)
	}
}

func TestRemoveDirContents(t *testing.T) {
	tempRoot := t.TempDir()
	for _, file := range []string{"a", "b", "c"} {
		if err := os.WriteFile(filepath.Join(tempRoot, file), []byte{}, 0644); err != nil {
			t.Fatalf("failed to write a file: %v", err)
		}
	}

	if err := RemoveDirContents(tempRoot, slog.Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if empty, err := DirIsEmpty(tempRoot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if !empty {
		t.Errorf("expected %q to be empty", tempRoot)
	}

	// dir itself must still exist
	if _, err := os.Stat(tempRoot); err != nil {
		t.Fatalf("expected root dir to still exist: %v", err)
	}
}
