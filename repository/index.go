package repository

import (
	"context"
	"fmt"
	"strings"
)

// IndexAdd stages rel (a file or directory) for the next commit.
func (r *Repository) IndexAdd(ctx context.Context, rel string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	rel = strings.TrimPrefix(rel, "/")
	_, err := r.git(ctx, "", "add", "-A", "--", rel)
	return err
}

// IndexRemove stages rel's removal. stage is accepted for parity with a
// libgit2-style API (ancestor=1, ours=2, theirs=3) but plain git has no
// per-stage index removal plumbing comparable to
// libgit2's — conflicted paths are collapsed to "remove from every stage",
// which is what "ours is None" resolution requires anyway.
func (r *Repository) IndexRemove(ctx context.Context, rel string, stage int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	rel = strings.TrimPrefix(rel, "/")
	_, err := r.git(ctx, "", "rm", "-r", "-f", "--ignore-unmatch", "--", rel)
	return err
}

// TreeEntry describes one entry returned by ListTree.
type TreeEntry struct {
	Name string
	Mode string // git file mode, e.g. "100644", "040000"
	Type string // "blob" or "tree"
	Size int64
	OID  string
}

// ListTree lists the immediate children of path inside ref's tree.
func (r *Repository) ListTree(ctx context.Context, ref, path string) ([]TreeEntry, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	path = strings.TrimPrefix(path, "/")
	treeish := ref
	if path != "" {
		treeish = ref + ":" + path
	}

	out, err := r.git(ctx, "", "ls-tree", "--long", treeish)
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, ref, path)
	}

	var entries []TreeEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// <mode> SP <type> SP <oid> SP+ <size-or-dash> TAB <name>
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		meta := strings.Fields(line[:tabIdx])
		if len(meta) < 4 {
			continue
		}
		var size int64
		fmt.Sscanf(meta[3], "%d", &size)
		entries = append(entries, TreeEntry{
			Mode: meta[0],
			Type: meta[1],
			OID:  meta[2],
			Size: size,
			Name: line[tabIdx+1:],
		})
	}
	return entries, nil
}

// StatPath looks up a single path's tree entry within ref, returning
// ErrNotFound if it doesn't exist.
func (r *Repository) StatPath(ctx context.Context, ref, path string) (TreeEntry, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return TreeEntry{Name: "", Mode: "040000", Type: "tree"}, nil
	}

	dir := parentDir(path)
	base := baseName(path)

	entries, err := r.ListTree(ctx, ref, dir)
	if err != nil {
		return TreeEntry{}, err
	}
	for _, e := range entries {
		if e.Name == base {
			return e, nil
		}
	}
	return TreeEntry{}, fmt.Errorf("%w: %s:%s", ErrNotFound, ref, path)
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func baseName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
