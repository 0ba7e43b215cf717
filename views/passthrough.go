package views

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gitfsio/gitfs/ignorecache"
)

// PassthroughView maps filesystem operations one-to-one onto the working
// tree at ctx.RepoPath + relative. It hides .git and .keep
// from directory listings and, when configured with current_path == "/",
// synthesizes the history directory entry into the root listing.
type PassthroughView struct {
	ctx *Context
}

func (v *PassthroughView) full(rel string) string {
	return v.ctx.Repo.FullPath(rel)
}

func (v *PassthroughView) Getattr(rel string) (Attr, error) {
	fi, err := os.Lstat(v.full(rel))
	if err != nil {
		return Attr{}, ErrNoEnt
	}
	return attrFromFileInfo(fi, v.ctx.UID, v.ctx.GID), nil
}

func attrFromFileInfo(fi os.FileInfo, uid, gid uint32) Attr {
	mode := uint32(fi.Mode().Perm())
	switch {
	case fi.IsDir():
		mode |= syscall.S_IFDIR
	case fi.Mode()&os.ModeSymlink != 0:
		mode |= syscall.S_IFLNK
	default:
		mode |= syscall.S_IFREG
	}
	nlink := uint32(1)
	if fi.IsDir() {
		nlink = 2
	}
	mtime := fi.ModTime()
	return Attr{
		Mode:  mode,
		Size:  fi.Size(),
		Nlink: nlink,
		UID:   uid,
		GID:   gid,
		Atime: mtime,
		Mtime: mtime,
		Ctime: mtime,
	}
}

func (v *PassthroughView) Readdir(rel string) ([]DirEntry, error) {
	entries, err := os.ReadDir(v.full(rel))
	if err != nil {
		return nil, ErrNoEnt
	}
	out := []DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR | 0o755},
		{Name: "..", Mode: syscall.S_IFDIR | 0o755},
	}
	if (rel == "/" || rel == "") && v.ctx.CurrentPath == "/" {
		out = append(out, DirEntry{Name: v.ctx.HistoryPath, Mode: syscall.S_IFDIR | 0o555})
	}
	for _, e := range entries {
		if ignorecache.IsAlwaysHidden(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DirEntry{Name: e.Name(), Mode: uint32(fi.Mode().Perm()) | dirBit(fi)})
	}
	return out, nil
}

func dirBit(fi os.FileInfo) uint32 {
	switch {
	case fi.IsDir():
		return syscall.S_IFDIR
	case fi.Mode()&os.ModeSymlink != 0:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

func (v *PassthroughView) Read(rel string, fh uint64, offset int64, size int) ([]byte, error) {
	f, err := os.Open(v.full(rel))
	if err != nil {
		return nil, ErrNoEnt
	}
	defer f.Close()
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, nil
	}
	return buf[:n], nil
}

func (v *PassthroughView) Open(rel string, flags int) (uint64, error) {
	if _, err := os.Lstat(v.full(rel)); err != nil && !isWriteIntent(flags) {
		return 0, ErrNoEnt
	}
	return 0, nil
}

func (v *PassthroughView) Release(rel string, fh uint64) error { return nil }

func (v *PassthroughView) Readlink(rel string) (string, error) {
	target, err := os.Readlink(v.full(rel))
	if err != nil {
		return "", ErrNoEnt
	}
	return target, nil
}

func (v *PassthroughView) Access(rel string, mode int) error {
	if v.ctx.Ignore.IsIgnored(sanitizeRel(rel)) && isWriteIntent(mode) {
		return ErrAcces
	}
	return nil
}

func (v *PassthroughView) Statfs() (Statfs, error) {
	return Statfs{BlockSize: 4096, Blocks: 1 << 30, BlocksFree: 1 << 29, Files: 1 << 20, FilesFree: 1 << 19, NameMax: 255}, nil
}

func (v *PassthroughView) Opendir(rel string) (uint64, error)     { return 0, nil }
func (v *PassthroughView) Releasedir(rel string, fh uint64) error { return nil }
func (v *PassthroughView) Flush(rel string, fh uint64) error      { return nil }

func (v *PassthroughView) Getxattr(rel, name string) ([]byte, error) { return nil, ErrNoSys }
func (v *PassthroughView) Listxattr(rel string) ([]string, error)    { return nil, nil }

func (v *PassthroughView) Truncate(rel string, size int64) error {
	if err := os.Truncate(v.full(rel), size); err != nil {
		return ErrNoEnt
	}
	return nil
}

func (v *PassthroughView) Utimens(rel string, atime, mtime time.Time) error {
	if err := os.Chtimes(v.full(rel), atime, mtime); err != nil {
		return ErrNoEnt
	}
	return nil
}

// sanitizeRel strips a leading slash so ignore-set and index paths are
// always relative to the mount root, per the normalization note.
func sanitizeRel(rel string) string {
	return strings.TrimPrefix(filepath.ToSlash(rel), "/")
}
