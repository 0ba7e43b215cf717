package views

import "time"

// ReadOnlyBase is the default mixin for read-only views: every mutating
// operation fails with EROFS, open succeeds only for read-only intent,
// and the handle-lifecycle no-ops (flush/release/releasedir/opendir)
// return success. IndexView, HistoryView and CommitView embed this and
// override only what they actually serve (Getattr, Readdir, and for
// CommitView, Read/Readlink).
type ReadOnlyBase struct{}

func (ReadOnlyBase) Getattr(rel string) (Attr, error) { return Attr{}, ErrNoEnt }
func (ReadOnlyBase) Readdir(rel string) ([]DirEntry, error) {
	return nil, ErrNoEnt
}
func (ReadOnlyBase) Read(rel string, fh uint64, offset int64, size int) ([]byte, error) {
	return nil, ErrNoSys
}
func (ReadOnlyBase) Write(rel string, fh uint64, offset int64, data []byte) (int, error) {
	return 0, ErrRofs
}

func (ReadOnlyBase) Open(rel string, flags int) (uint64, error) {
	if isWriteIntent(flags) {
		return 0, ErrRofs
	}
	return 0, nil
}

func (ReadOnlyBase) Release(rel string, fh uint64) error       { return nil }
func (ReadOnlyBase) Create(rel string, mode uint32, flags int) (uint64, error) {
	return 0, ErrRofs
}
func (ReadOnlyBase) Mkdir(rel string, mode uint32) error         { return ErrRofs }
func (ReadOnlyBase) Rmdir(rel string) error                      { return ErrRofs }
func (ReadOnlyBase) Unlink(rel string) error                     { return ErrRofs }
func (ReadOnlyBase) Rename(oldRel, newRel string) error          { return ErrRofs }
func (ReadOnlyBase) Symlink(target, linkName string) error       { return ErrRofs }
func (ReadOnlyBase) Link(target, linkName string) error          { return ErrRofs }
func (ReadOnlyBase) Chmod(rel string, mode uint32) error         { return ErrRofs }
func (ReadOnlyBase) Chown(rel string, uid, gid uint32) error     { return ErrRofs }
func (ReadOnlyBase) Truncate(rel string, size int64) error       { return ErrRofs }
func (ReadOnlyBase) Utimens(rel string, atime, mtime time.Time) error {
	return ErrRofs
}
func (ReadOnlyBase) Fsync(rel string, fh uint64) error { return nil }

func (ReadOnlyBase) Access(rel string, mode int) error {
	if isWriteIntent(mode) {
		return ErrAcces
	}
	return nil
}

func (ReadOnlyBase) Readlink(rel string) (string, error) { return "", ErrNoSys }

func (ReadOnlyBase) Statfs() (Statfs, error) {
	return Statfs{BlockSize: 4096, Blocks: 1 << 20, BlocksFree: 0, Files: 1 << 20, FilesFree: 0, NameMax: 255}, nil
}

func (ReadOnlyBase) Opendir(rel string) (uint64, error)     { return 0, nil }
func (ReadOnlyBase) Releasedir(rel string, fh uint64) error { return nil }
func (ReadOnlyBase) Flush(rel string, fh uint64) error      { return nil }

func (ReadOnlyBase) Getxattr(rel, name string) ([]byte, error) { return nil, ErrNoSys }
func (ReadOnlyBase) Setxattr(rel, name string, value []byte, flags int) error {
	return ErrRofs
}
func (ReadOnlyBase) Listxattr(rel string) ([]string, error) { return nil, nil }
func (ReadOnlyBase) Removexattr(rel, name string) error     { return ErrRofs }
