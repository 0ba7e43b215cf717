package views

import (
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/lfs"
	"github.com/gitfsio/gitfs/repository"
)

// CommitView is a read-only snapshot of one commit's tree.
// It is identified by the commit_sha1 regex capture; date/time captures
// are kept only as a getattr-time fallback for commits the cache hasn't
// indexed yet.
type CommitView struct {
	ReadOnlyBase
	ctx      *Context
	commitID string
	stamp    time.Time
}

// NewCommitView constructs a view over one commit snapshot.
func NewCommitView(ctx *Context, captures map[string]string) *CommitView {
	v := &CommitView{ctx: ctx, commitID: captures["commit_sha1"], stamp: ctx.MountTime}
	entryName := captures["time"] + "-" + captures["commit_sha1"]
	if c, ok := ctx.Commits.Lookup(captures["date"], entryName); ok {
		v.stamp = c.Time
	} else if t, err := time.ParseInLocation("2006-01-02 15-04-05", captures["date"]+" "+captures["time"], time.Local); err == nil {
		v.stamp = t
	}
	return v
}

func (v *CommitView) Getattr(rel string) (Attr, error) {
	path := strings.TrimPrefix(rel, "/")
	entry, err := v.ctx.Repo.StatPath(opCtx(), v.commitID, path)
	if err != nil {
		return Attr{}, ErrNoEnt
	}
	return v.attrFromEntry(entry), nil
}

func (v *CommitView) attrFromEntry(e repository.TreeEntry) Attr {
	nlink := uint32(1)
	var mode uint32
	switch {
	case e.Type == "tree":
		mode = syscall.S_IFDIR | 0o555
		nlink = 2
	case e.Mode == "120000":
		mode = syscall.S_IFLNK | 0o777
	default:
		perm, _ := strconv.ParseUint(e.Mode, 8, 32)
		mode = syscall.S_IFREG | (uint32(perm) & 0o777)
	}
	return Attr{
		Mode:  mode,
		Size:  e.Size,
		Nlink: nlink,
		UID:   v.ctx.UID,
		GID:   v.ctx.GID,
		Atime: v.stamp,
		Mtime: v.stamp,
		Ctime: v.stamp,
	}
}

func (v *CommitView) Readdir(rel string) ([]DirEntry, error) {
	path := strings.TrimPrefix(rel, "/")
	children, err := v.ctx.Repo.ListTree(opCtx(), v.commitID, path)
	if err != nil {
		return nil, ErrNoEnt
	}

	entries := []DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR | 0o555},
		{Name: "..", Mode: syscall.S_IFDIR | 0o555},
	}
	for _, e := range children {
		if ignorecache.IsAlwaysHidden(e.Name) {
			continue
		}
		var mode uint32
		switch {
		case e.Type == "tree":
			mode = syscall.S_IFDIR | 0o555
		case e.Mode == "120000":
			mode = syscall.S_IFLNK | 0o777
		default:
			perm, _ := strconv.ParseUint(e.Mode, 8, 32)
			mode = syscall.S_IFREG | (uint32(perm) & 0o777)
		}
		entries = append(entries, DirEntry{Name: e.Name, Mode: mode})
	}
	return entries, nil
}

func (v *CommitView) Read(rel string, fh uint64, offset int64, size int) ([]byte, error) {
	path := strings.TrimPrefix(rel, "/")
	blob, err := v.ctx.Repo.ShowBlob(opCtx(), v.commitID, path)
	if err != nil {
		return nil, ErrNoEnt
	}
	blob = v.resolveLFS(blob)
	if offset >= int64(len(blob)) {
		return nil, nil
	}
	end := offset + int64(size)
	if end > int64(len(blob)) {
		end = int64(len(blob))
	}
	return blob[offset:end], nil
}

// resolveLFS swaps a pointer-file blob back for its real content when
// ctx.LFS can load objects by oid, so history reads are never stuck
// staring at pointer text for files that were LFS-staged on write.
func (v *CommitView) resolveLFS(blob []byte) []byte {
	loader, ok := v.ctx.LFS.(lfs.ObjectLoader)
	if !ok {
		return blob
	}
	p, ok := lfs.ParsePointer(blob)
	if !ok {
		return blob
	}
	content, err := loader.LoadObject(p.OID)
	if err != nil {
		return blob
	}
	return content
}

func (v *CommitView) Readlink(rel string) (string, error) {
	path := strings.TrimPrefix(rel, "/")
	blob, err := v.ctx.Repo.ShowBlob(opCtx(), v.commitID, path)
	if err != nil {
		return "", ErrNoEnt
	}
	return string(blob), nil
}
