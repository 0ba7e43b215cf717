package views

import (
	"log/slog"
	"syscall"
	"time"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/lfs"
	"github.com/gitfsio/gitfs/repository"
	"github.com/gitfsio/gitfs/syncstate"
)

// Errno aliases for the error taxonomy. Views return these directly
// (syscall.Errno implements error), so a mount driver can type-assert
// down to the kernel errno without a translation table.
const (
	ErrAcces = syscall.EACCES
	ErrRofs  = syscall.EROFS
	ErrFbig  = syscall.EFBIG
	ErrInval = syscall.EINVAL
	ErrNoEnt = syscall.ENOENT
	ErrNoSys = syscall.ENOSYS
	ErrExist = syscall.EEXIST
)

// Open-intent flag bits, independent of any particular platform's O_*
// constants so the View interface stays usable from any FUSE binding.
const (
	OWronly = 1 << iota
	ORdwr
	OAppend
	OCreat
)

func isWriteIntent(flags int) bool {
	return flags&(OWronly|ORdwr|OAppend|OCreat) != 0
}

// Attr is a FUSE getattr result, POSIX-shaped but binding-neutral.
type Attr struct {
	Mode  uint32 // type bits (e.g. syscall.S_IFDIR) OR'd with permission bits
	Size  int64
	Nlink uint32
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// DirEntry is one entry yielded by Readdir.
type DirEntry struct {
	Name string
	Mode uint32
}

// Statfs is a minimal statvfs result; gitfs has no quota model so every
// view reports the same conservative, always-available numbers.
type Statfs struct {
	BlockSize  uint32
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	FilesFree  uint64
	NameMax    uint32
}

// Context is the immutable bundle every view is constructed with: the
// shared repo/cache/state handles plus mount config, passed down by the
// router alongside whatever regex captures it pulled out of the request
// path (date, time, commit_sha1).
type Context struct {
	Repo        *repository.Repository
	Ignore      *ignorecache.Cache
	Commits     *commitcache.Cache
	Queue       *commitqueue.Queue
	State       *syncstate.SyncState
	LFS         lfs.Hook
	Log         *slog.Logger
	RepoPath    string
	MountPath   string
	UID         uint32
	GID         uint32
	Branch      string
	MountTime   time.Time
	MaxSize     int64
	MaxOffset   int64
	CurrentPath string
	HistoryPath string
}

// View is the capability set every route target implements. An operation
// a view doesn't meaningfully support returns ErrNoSys; ReadOnlyBase
// supplies EROFS defaults for every mutating operation, which read-only
// views embed and leave untouched.
type View interface {
	Getattr(rel string) (Attr, error)
	Readdir(rel string) ([]DirEntry, error)
	Read(rel string, fh uint64, offset int64, size int) ([]byte, error)
	Write(rel string, fh uint64, offset int64, data []byte) (int, error)
	Open(rel string, flags int) (uint64, error)
	Release(rel string, fh uint64) error
	Create(rel string, mode uint32, flags int) (uint64, error)
	Mkdir(rel string, mode uint32) error
	Rmdir(rel string) error
	Unlink(rel string) error
	Rename(oldRel, newRel string) error
	Symlink(target, linkName string) error
	Link(target, linkName string) error
	Chmod(rel string, mode uint32) error
	Chown(rel string, uid, gid uint32) error
	Truncate(rel string, size int64) error
	Utimens(rel string, atime, mtime time.Time) error
	Fsync(rel string, fh uint64) error
	Access(rel string, mode int) error
	Readlink(rel string) (string, error)
	Statfs() (Statfs, error)
	Opendir(rel string) (uint64, error)
	Releasedir(rel string, fh uint64) error
	Flush(rel string, fh uint64) error
	Getxattr(rel, name string) ([]byte, error)
	Setxattr(rel, name string, value []byte, flags int) error
	Listxattr(rel string) ([]string, error)
	Removexattr(rel, name string) error
}
