package lfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestThresholdHook_ShouldUseLFS(t *testing.T) {
	disabled := NewThresholdHook(t.TempDir(), 0)
	if use, err := disabled.ShouldUseLFS("big.bin", 1<<30); err != nil || use {
		t.Errorf("disabled hook ShouldUseLFS() = %v, %v; want false, nil", use, err)
	}

	enabled := NewThresholdHook(t.TempDir(), 1024)
	if use, err := enabled.ShouldUseLFS("small.txt", 100); err != nil || use {
		t.Errorf("ShouldUseLFS(small) = %v, %v; want false, nil", use, err)
	}
	if use, err := enabled.ShouldUseLFS("big.bin", 2048); err != nil || !use {
		t.Errorf("ShouldUseLFS(big) = %v, %v; want true, nil", use, err)
	}
	if use, err := enabled.ShouldUseLFS("exact.bin", 1024); err != nil || !use {
		t.Errorf("ShouldUseLFS(exact threshold) = %v, %v; want true, nil", use, err)
	}
}

func TestThresholdHook_StoreAndLoadObject(t *testing.T) {
	h := NewThresholdHook(t.TempDir(), 1024)
	content := []byte("some large file content")
	oid := "abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234"

	if err := h.StoreObject(content, oid); err != nil {
		t.Fatalf("StoreObject() error: %v", err)
	}

	path, err := h.ObjectPath(oid)
	if err != nil {
		t.Fatalf("ObjectPath() error: %v", err)
	}
	wantSuffix := filepath.Join("lfs", "objects", oid[0:2], oid[2:4], oid)
	if !strings.HasSuffix(path, wantSuffix) {
		t.Errorf("ObjectPath() = %q, want suffix %q", path, wantSuffix)
	}

	got, err := h.LoadObject(oid)
	if err != nil {
		t.Fatalf("LoadObject() error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("LoadObject() = %q, want %q", got, content)
	}
}

func TestThresholdHook_LoadObject_missing(t *testing.T) {
	h := NewThresholdHook(t.TempDir(), 1024)
	_, err := h.LoadObject("0000111122223333000011112222333300001111222233330000111122223333")
	if !errors.Is(err, ErrObjectMissing) {
		t.Errorf("LoadObject(missing) error = %v, want ErrObjectMissing", err)
	}
}

func TestThresholdHook_ObjectPath_shortOID(t *testing.T) {
	h := NewThresholdHook(t.TempDir(), 1024)
	if _, err := h.ObjectPath("ab"); err == nil {
		t.Errorf("expected ObjectPath() to reject an oid shorter than 4 characters")
	}
}

func TestThresholdHook_PointerForFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	content := []byte("hello world")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	h := NewThresholdHook(dir, 1)
	p, err := h.PointerForFile(path)
	if err != nil {
		t.Fatalf("PointerForFile() error: %v", err)
	}
	if p.Size != int64(len(content)) {
		t.Errorf("PointerForFile().Size = %d, want %d", p.Size, len(content))
	}
	if len(p.OID) != 64 {
		t.Errorf("PointerForFile().OID length = %d, want 64 (sha256 hex)", len(p.OID))
	}
}

func TestFormatPointer_ParsePointer_roundTrip(t *testing.T) {
	p := Pointer{OID: strings.Repeat("a", 64), Size: 12345}
	text := FormatPointer(p)

	got, ok := ParsePointer([]byte(text))
	if !ok {
		t.Fatalf("ParsePointer() failed to recognize a pointer produced by FormatPointer()")
	}
	if got != p {
		t.Errorf("ParsePointer() = %+v, want %+v", got, p)
	}
}

func TestParsePointer_rejectsNonPointerContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("just some regular file content\n")},
		{"empty", []byte("")},
		{"wrong version line", []byte("version https://example.com/other\noid sha256:abc\nsize 1\n")},
		{"missing size", []byte("version https://git-lfs.github.com/spec/v1\noid sha256:abc\n")},
		{"missing oid", []byte("version https://git-lfs.github.com/spec/v1\nsize 1\n")},
		{"non-numeric size", []byte("version https://git-lfs.github.com/spec/v1\noid sha256:abc\nsize notanumber\n")},
		{"too large", bytes.Repeat([]byte("x"), MaxPointerBytes+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParsePointer(tt.data); ok {
				t.Errorf("ParsePointer(%q) = true, want false", tt.name)
			}
		})
	}
}
