package views

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/internal/lock"
	"github.com/gitfsio/gitfs/lfs"
)

// dirtyEntry is the per-open-write-handle state calls out as
// the one exception to "views hold no per-call state": CurrentView owns
// it, created on open-for-write/create, consumed on release.
type dirtyEntry struct {
	rel     string
	message string
	stage   bool
}

// CurrentView is the writable working-tree view: every
// mutating call first clears the ignore gate, then performs the local
// filesystem operation, then stages a commit-queue job describing it.
type CurrentView struct {
	PassthroughView
	ctx *Context

	nextFh atomic.Uint64
	mu     lock.Mutex
	dirty  map[uint64]*dirtyEntry
}

// NewCurrentView constructs the write path view.
func NewCurrentView(ctx *Context, captures map[string]string) *CurrentView {
	v := &CurrentView{ctx: ctx, dirty: make(map[uint64]*dirtyEntry)}
	v.PassthroughView.ctx = ctx
	return v
}

func (v *CurrentView) ignored(rels ...string) bool {
	for _, r := range rels {
		if v.ctx.Ignore.IsIgnored(sanitizeRel(r)) {
			return true
		}
	}
	return false
}

func (v *CurrentView) Open(rel string, flags int) (uint64, error) {
	if isWriteIntent(flags) && v.ignored(rel) {
		return 0, ErrAcces
	}
	fh := v.nextFh.Add(1)
	if isWriteIntent(flags) {
		r := sanitizeRel(rel)
		v.ctx.State.IncWriters()
		v.mu.Lock()
		v.dirty[fh] = &dirtyEntry{rel: r, message: fmt.Sprintf("Opened /%s for write", r)}
		v.mu.Unlock()
		if flags&OCreat != 0 {
			f, err := os.OpenFile(v.full(rel), os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				v.ctx.State.DecWriters()
				v.mu.Lock()
				delete(v.dirty, fh)
				v.mu.Unlock()
				return 0, ErrNoEnt
			}
			f.Close()
		}
		return fh, nil
	}
	if _, err := os.Lstat(v.full(rel)); err != nil {
		return 0, ErrNoEnt
	}
	return fh, nil
}

func (v *CurrentView) Create(rel string, mode uint32, flags int) (uint64, error) {
	if v.ignored(rel) {
		return 0, ErrAcces
	}
	f, err := os.OpenFile(v.full(rel), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(mode&0o777))
	if err != nil {
		return 0, ErrNoEnt
	}
	f.Close()

	r := sanitizeRel(rel)
	fh := v.nextFh.Add(1)
	v.ctx.State.IncWriters()
	v.mu.Lock()
	v.dirty[fh] = &dirtyEntry{rel: r, message: fmt.Sprintf("Created /%s", r), stage: true}
	v.mu.Unlock()
	return fh, nil
}

func (v *CurrentView) Write(rel string, fh uint64, offset int64, data []byte) (int, error) {
	if v.ctx.MaxSize > 0 && offset+int64(len(data)) > v.ctx.MaxSize {
		return 0, ErrFbig
	}
	if v.ctx.MaxOffset > 0 && offset > v.ctx.MaxOffset {
		return 0, ErrFbig
	}
	f, err := os.OpenFile(v.full(rel), os.O_WRONLY, 0644)
	if err != nil {
		return 0, ErrNoEnt
	}
	defer f.Close()
	n, err := f.WriteAt(data, offset)
	if err != nil {
		return n, ErrNoEnt
	}

	r := sanitizeRel(rel)
	v.mu.Lock()
	if d, ok := v.dirty[fh]; ok {
		d.stage = true
		d.message = fmt.Sprintf("Update /%s", r)
	}
	v.mu.Unlock()
	return n, nil
}

func (v *CurrentView) Fsync(rel string, fh uint64) error {
	r := sanitizeRel(rel)
	return v.stage(r, "", fmt.Sprintf("Fsync /%s", r))
}

func (v *CurrentView) Release(rel string, fh uint64) error {
	v.mu.Lock()
	d, ok := v.dirty[fh]
	if ok {
		delete(v.dirty, fh)
	}
	v.mu.Unlock()
	if !ok {
		return nil
	}
	// Stage before dropping the writers count, so the sync worker can't
	// observe writers == 0 while this handle's job is still unqueued.
	var err error
	if d.stage {
		err = v.stage(d.rel, "", d.message)
	}
	v.ctx.State.DecWriters()
	return err
}

func (v *CurrentView) Mkdir(rel string, mode uint32) error {
	if v.ignored(rel) {
		return ErrAcces
	}
	r := sanitizeRel(rel)

	// Walk the path level by level so every newly created directory gets
	// its own staged .keep, keeping empty intermediate directories
	// representable in git.
	var created []string
	partial := ""
	for _, seg := range strings.Split(r, "/") {
		if seg == "" {
			continue
		}
		partial = filepath.ToSlash(filepath.Join(partial, seg))
		full := v.full("/" + partial)
		if _, err := os.Lstat(full); err == nil {
			continue
		}
		if err := os.Mkdir(full, os.FileMode(mode&0o777)|0o100); err != nil {
			return ErrNoEnt
		}
		created = append(created, partial)
	}

	message := fmt.Sprintf("Create the /%s directory", r)
	for _, dir := range created {
		keepRel := filepath.ToSlash(filepath.Join(dir, ".keep"))
		if err := os.WriteFile(v.full("/"+keepRel), nil, 0644); err != nil {
			return ErrNoEnt
		}
		if err := v.stage(keepRel, "", message); err != nil {
			return err
		}
	}
	if len(created) == 0 {
		return ErrExist
	}
	return nil
}

func (v *CurrentView) Rmdir(rel string) error {
	if v.ignored(rel) {
		return ErrAcces
	}
	r := sanitizeRel(rel)
	full := v.full(rel)
	message := fmt.Sprintf("Delete the /%s directory", r)

	err := filepath.Walk(full, func(p string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return nil
		}
		relChild := strings.TrimPrefix(filepath.ToSlash(p), filepath.ToSlash(v.ctx.RepoPath)+"/")
		return v.stage("", relChild, message)
	})
	if err != nil {
		return ErrNoEnt
	}
	if err := os.RemoveAll(full); err != nil {
		return ErrNoEnt
	}
	return v.stage("", r, message)
}

func (v *CurrentView) Unlink(rel string) error {
	if v.ignored(rel) {
		return ErrAcces
	}
	r := sanitizeRel(rel)
	if err := os.Remove(v.full(rel)); err != nil {
		return ErrNoEnt
	}
	return v.stage("", r, fmt.Sprintf("Deleted /%s", r))
}

// stripCurrent removes the view's own mount prefix from p. The router
// only strips the matched prefix from the primary path of an operation;
// secondary paths (rename destinations, link targets) arrive in mount
// coordinates and must be rebased onto the working tree here.
func (v *CurrentView) stripCurrent(p string) string {
	if v.ctx.CurrentPath == "" || v.ctx.CurrentPath == "/" {
		return p
	}
	prefix := "/" + strings.TrimPrefix(v.ctx.CurrentPath, "/")
	if p == prefix {
		return "/"
	}
	if strings.HasPrefix(p, prefix+"/") {
		return strings.TrimPrefix(p, prefix)
	}
	return p
}

func (v *CurrentView) Rename(oldRel, newRel string) error {
	// A destination under the history tree (in mount coordinates) belongs
	// to a read-only view.
	if v.ctx.HistoryPath != "" {
		hist := "/" + strings.Trim(v.ctx.HistoryPath, "/")
		if newRel == hist || strings.HasPrefix(newRel, hist+"/") {
			return ErrRofs
		}
	}
	newRel = v.stripCurrent(newRel)
	if v.ignored(oldRel, newRel) {
		return ErrAcces
	}
	if err := os.MkdirAll(filepath.Dir(v.full(newRel)), 0755); err != nil {
		return ErrNoEnt
	}
	if err := os.Rename(v.full(oldRel), v.full(newRel)); err != nil {
		return ErrNoEnt
	}
	oldR := sanitizeRel(oldRel)
	newR := sanitizeRel(newRel)
	message := fmt.Sprintf("Rename /%s to /%s", oldR, newR)
	return v.stage(newR, oldR, message)
}

func (v *CurrentView) Symlink(target, linkName string) error {
	if v.ignored(linkName, target) {
		return ErrAcces
	}
	if err := os.Symlink(target, v.full(linkName)); err != nil {
		return ErrNoEnt
	}
	r := sanitizeRel(linkName)
	return v.stage(r, "", fmt.Sprintf("Create symlink to %s for %s", target, r))
}

func (v *CurrentView) Link(target, linkName string) error {
	target = v.stripCurrent(target)
	if v.ignored(linkName, target) {
		return ErrAcces
	}
	if err := os.Link(v.full(target), v.full(linkName)); err != nil {
		return ErrNoEnt
	}
	r := sanitizeRel(linkName)
	return v.stage(r, "", fmt.Sprintf("Link /%s to /%s", r, sanitizeRel(target)))
}

func (v *CurrentView) Chmod(rel string, mode uint32) error {
	perm := mode & 0o777
	if perm != 0o755 && perm != 0o644 {
		return ErrInval
	}
	if v.ignored(rel) {
		return ErrAcces
	}
	fi, err := os.Lstat(v.full(rel))
	if err != nil {
		return ErrNoEnt
	}
	if err := os.Chmod(v.full(rel), os.FileMode(perm)); err != nil {
		return ErrNoEnt
	}
	if fi.IsDir() {
		return nil
	}
	r := sanitizeRel(rel)
	return v.stage(r, "", fmt.Sprintf("Chmod to 0%o on /%s", perm, r))
}

func (v *CurrentView) Chown(rel string, uid, gid uint32) error { return nil }

func (v *CurrentView) Truncate(rel string, size int64) error {
	if v.ignored(rel) {
		return ErrAcces
	}
	if err := os.Truncate(v.full(rel), size); err != nil {
		return ErrNoEnt
	}
	r := sanitizeRel(rel)
	return v.stage(r, "", fmt.Sprintf("Update /%s", r))
}

func (v *CurrentView) Utimens(rel string, atime, mtime time.Time) error {
	return v.PassthroughView.Utimens(rel, atime, mtime)
}

func (v *CurrentView) Setxattr(rel, name string, value []byte, flags int) error { return ErrNoSys }
func (v *CurrentView) Removexattr(rel, name string) error                      { return ErrNoSys }

// stage implements the staging algorithm: remove is processed first
// (enumerating files under add when both are set, for renames), then add
// is indexed through the LFS-aware hook, and if either did real work a
// commit job is enqueued.
func (v *CurrentView) stage(add, remove, message string) error {
	repo := v.ctx.Repo
	ctx := opCtx()
	did := false

	if remove != "" {
		remove = strings.TrimPrefix(remove, "/")
		if add != "" {
			files := v.filesUnder(add)
			if len(files) == 0 {
				if err := repo.IndexRemove(ctx, remove, 0); err == nil {
					did = true
				}
			}
			for _, f := range files {
				rel := remove + strings.TrimPrefix(f, add)
				if err := repo.IndexRemove(ctx, rel, 0); err == nil {
					did = true
				}
			}
		} else {
			if err := repo.IndexRemove(ctx, remove, 0); err == nil {
				did = true
			}
		}
	}

	if add != "" {
		add = strings.TrimPrefix(add, "/")
		files := v.filesUnder(add)
		if len(files) == 0 {
			if err := v.lfsAwareAdd(ctx, add); err == nil {
				did = true
			}
		}
		for _, f := range files {
			if err := v.lfsAwareAdd(ctx, f); err == nil {
				did = true
			}
		}
	}

	if !did {
		return nil
	}

	var addOpt, removeOpt string
	if add != "" {
		addOpt = add
	}
	if remove != "" {
		removeOpt = remove
	}
	v.ctx.Queue.Put(commitqueue.Job{Add: addOpt, Remove: removeOpt, Message: message})
	return nil
}

// filesUnder lists files (relative to the repo root) under rel, or nil if
// rel names a plain file or doesn't exist as a directory.
func (v *CurrentView) filesUnder(rel string) []string {
	full := v.full("/" + rel)
	fi, err := os.Lstat(full)
	if err != nil || !fi.IsDir() {
		return nil
	}
	var out []string
	_ = filepath.Walk(full, func(p string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return nil
		}
		out = append(out, strings.TrimPrefix(filepath.ToSlash(p), filepath.ToSlash(v.ctx.RepoPath)+"/"))
		return nil
	})
	sort.Strings(out)
	return out
}

// lfsAwareAdd implements the LFS-aware add hook: if the LFS
// collaborator wants this file stored as a pointer, the content is
// swapped out for the pointer text for the duration of index.add, then
// restored. Any failure along that path falls through to a plain add.
func (v *CurrentView) lfsAwareAdd(ctx context.Context, rel string) error {
	full := v.full("/" + rel)
	if v.ctx.LFS != nil {
		info, statErr := os.Lstat(full)
		if statErr == nil && info.Mode().IsRegular() {
			if use, err := v.ctx.LFS.ShouldUseLFS(rel, info.Size()); err == nil && use {
				if pErr := v.addViaLFS(ctx, rel, full); pErr == nil {
					return nil
				}
			}
		}
	}
	return v.ctx.Repo.IndexAdd(ctx, rel)
}

func (v *CurrentView) addViaLFS(ctx context.Context, rel, full string) error {
	original, err := os.ReadFile(full)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(original)
	oid := hex.EncodeToString(sum[:])

	if err := v.ctx.LFS.StoreObject(original, oid); err != nil {
		return err
	}

	pointer := lfs.FormatPointer(lfs.Pointer{OID: oid, Size: int64(len(original))})
	if err := os.WriteFile(full, []byte(pointer), 0644); err != nil {
		return err
	}
	addErr := v.ctx.Repo.IndexAdd(ctx, rel)
	// Always restore the real content, even if the index add failed.
	if writeErr := os.WriteFile(full, original, 0644); writeErr != nil {
		return writeErr
	}
	return addErr
}
