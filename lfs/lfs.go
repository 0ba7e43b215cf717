// Package lfs is the content-rewriting hook CurrentView calls at staging
// time. The hook's own fetch/push of large
// objects against a remote LFS server is out of scope for gitfs's core —
// this package only implements the local object store and pointer-file
// format that the core depends on.
package lfs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Pointer is the {oid, size} pair the pointer_for_file returns.
type Pointer struct {
	OID  string
	Size int64
}

// Hook is the interface CurrentView's staging path depends on. A nil Hook
// means every file is staged plainly; ShouldUseLFS is simply never
// consulted in that case. The mount driver installs a ThresholdHook with a
// zero (disabled) threshold rather than a nil Hook.
type Hook interface {
	ShouldUseLFS(path string, size int64) (bool, error)
	StoreObject(content []byte, oid string) error
	PointerForFile(path string) (Pointer, error)
}

// ErrObjectMissing is returned by a store that can't find a requested
// object; ThresholdHook.LoadObject returns it for an oid with no stored
// object.
var ErrObjectMissing = errors.New("lfs object not found")

// ThresholdHook is the straightforward, pack-grounded default: files at or
// above a configured byte threshold are stored as LFS pointers; objects
// live under <repoRoot>/.git/lfs/objects/<oid[0:2]>/<oid[2:4]>/<oid>, the
// same fan-out layout real git-lfs uses.
type ThresholdHook struct {
	RepoRoot  string
	Threshold int64
}

// NewThresholdHook constructs the default size-threshold LFS hook. A
// non-positive threshold disables LFS entirely (ShouldUseLFS always false).
func NewThresholdHook(repoRoot string, threshold int64) *ThresholdHook {
	return &ThresholdHook{RepoRoot: repoRoot, Threshold: threshold}
}

func (h *ThresholdHook) ShouldUseLFS(path string, size int64) (bool, error) {
	if h.Threshold <= 0 {
		return false, nil
	}
	return size >= h.Threshold, nil
}

func (h *ThresholdHook) objectPath(oid string) (string, error) {
	if len(oid) < 4 {
		return "", fmt.Errorf("lfs: oid %q too short", oid)
	}
	return filepath.Join(h.RepoRoot, ".git", "lfs", "objects", oid[0:2], oid[2:4], oid), nil
}

func (h *ThresholdHook) StoreObject(content []byte, oid string) error {
	path, err := h.objectPath(oid)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}

func (h *ThresholdHook) PointerForFile(path string) (Pointer, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Pointer{}, err
	}
	sum := sha256.Sum256(content)
	return Pointer{OID: hex.EncodeToString(sum[:]), Size: int64(len(content))}, nil
}

// FormatPointer renders the standard git-lfs v1 pointer text for p.
func FormatPointer(p Pointer) string {
	return fmt.Sprintf("version https://git-lfs.github.com/spec/v1\noid sha256:%s\nsize %d\n", p.OID, p.Size)
}

// MaxPointerBytes caps pointer files on parse: a file larger than this can
// never be a pointer and should be treated as ordinary content.
const MaxPointerBytes = 1024

// ParsePointer recognizes the standard git-lfs v1 pointer text and
// extracts its oid/size. It reports false, without error, for any input
// that is not a well-formed pointer (including anything over
// MaxPointerBytes), so callers can fall back to treating the content as a
// plain blob.
func ParsePointer(data []byte) (Pointer, bool) {
	if len(data) > MaxPointerBytes {
		return Pointer{}, false
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 3 || lines[0] != "version https://git-lfs.github.com/spec/v1" {
		return Pointer{}, false
	}
	var p Pointer
	var haveOID, haveSize bool
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "oid sha256:"):
			p.OID = strings.TrimPrefix(line, "oid sha256:")
			haveOID = true
		case strings.HasPrefix(line, "size "):
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "size "), 10, 64)
			if err != nil {
				return Pointer{}, false
			}
			p.Size = n
			haveSize = true
		}
	}
	if !haveOID || !haveSize {
		return Pointer{}, false
	}
	return p, true
}

// ObjectLoader is implemented by hooks that can resolve a pointer's oid
// back to its stored content. CommitView type-asserts ctx.LFS against this
// to transparently read through LFS pointers in historical snapshots; a
// Hook that doesn't implement it just serves pointer text as-is.
type ObjectLoader interface {
	LoadObject(oid string) ([]byte, error)
}

// ObjectPath returns the on-disk path of the stored object with oid under
// repoRoot, using the same two-level fan-out StoreObject writes to.
func (h *ThresholdHook) ObjectPath(oid string) (string, error) {
	return h.objectPath(oid)
}

// LoadObject reads back the content previously stored under oid.
func (h *ThresholdHook) LoadObject(oid string) ([]byte, error) {
	path, err := h.objectPath(oid)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectMissing
		}
		return nil, err
	}
	return data, nil
}
