package mount

import (
	"time"

	"github.com/gitfsio/gitfs/router"
	"github.com/gitfsio/gitfs/views"
)

// The methods below are a fixed enumeration of FUSE operations, each
// dispatched by a direct method call on the resolved view rather than by
// runtime attribute lookup. A binding's callback table calls these
// directly; each just resolves the path to a view through the router and
// forwards the call, with idle cleared/set around it.

func (d *Driver) Getattr(path string) (views.Attr, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (views.Attr, error) {
		return v.Getattr(rel)
	})
}

func (d *Driver) Readdir(path string) ([]views.DirEntry, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) ([]views.DirEntry, error) {
		return v.Readdir(rel)
	})
}

func (d *Driver) Read(path string, fh uint64, offset int64, size int) ([]byte, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) ([]byte, error) {
		return v.Read(rel, fh, offset, size)
	})
}

func (d *Driver) Write(path string, fh uint64, offset int64, data []byte) (int, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (int, error) {
		return v.Write(rel, fh, offset, data)
	})
}

func (d *Driver) Open(path string, flags int) (uint64, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (uint64, error) {
		return v.Open(rel, flags)
	})
}

func (d *Driver) Release(path string, fh uint64) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Release(rel, fh)
	})
	return err
}

func (d *Driver) Create(path string, mode uint32, flags int) (uint64, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (uint64, error) {
		return v.Create(rel, mode, flags)
	})
}

func (d *Driver) Mkdir(path string, mode uint32) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Mkdir(rel, mode)
	})
	return err
}

func (d *Driver) Rmdir(path string) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Rmdir(rel)
	})
	return err
}

func (d *Driver) Unlink(path string) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Unlink(rel)
	})
	return err
}

// Rename resolves both endpoints through the view that owns oldPath; the
// mount root's route table is the same for both sides in every
// configuration gitfs supports, since rename is only meaningful within
// current.
func (d *Driver) Rename(oldPath, newPath string) error {
	_, err := router.Dispatch(d.router, oldPath, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Rename(rel, newPath)
	})
	return err
}

func (d *Driver) Symlink(target, linkPath string) error {
	_, err := router.Dispatch(d.router, linkPath, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Symlink(target, rel)
	})
	return err
}

func (d *Driver) Link(targetPath, linkPath string) error {
	_, err := router.Dispatch(d.router, linkPath, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Link(targetPath, rel)
	})
	return err
}

func (d *Driver) Chmod(path string, mode uint32) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Chmod(rel, mode)
	})
	return err
}

func (d *Driver) Chown(path string, uid, gid uint32) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Chown(rel, uid, gid)
	})
	return err
}

func (d *Driver) Truncate(path string, size int64) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Truncate(rel, size)
	})
	return err
}

func (d *Driver) Utimens(path string, atime, mtime time.Time) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Utimens(rel, atime, mtime)
	})
	return err
}

func (d *Driver) Fsync(path string, fh uint64) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Fsync(rel, fh)
	})
	return err
}

func (d *Driver) Access(path string, mode int) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Access(rel, mode)
	})
	return err
}

func (d *Driver) Readlink(path string) (string, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (string, error) {
		return v.Readlink(rel)
	})
}

func (d *Driver) Statfs(path string) (views.Statfs, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (views.Statfs, error) {
		return v.Statfs()
	})
}

func (d *Driver) Opendir(path string) (uint64, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) (uint64, error) {
		return v.Opendir(rel)
	})
}

func (d *Driver) Releasedir(path string, fh uint64) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Releasedir(rel, fh)
	})
	return err
}

func (d *Driver) Flush(path string, fh uint64) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Flush(rel, fh)
	})
	return err
}

func (d *Driver) Getxattr(path, name string) ([]byte, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) ([]byte, error) {
		return v.Getxattr(rel, name)
	})
}

func (d *Driver) Setxattr(path, name string, value []byte, flags int) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Setxattr(rel, name, value, flags)
	})
	return err
}

func (d *Driver) Listxattr(path string) ([]string, error) {
	return router.Dispatch(d.router, path, func(v views.View, rel string) ([]string, error) {
		return v.Listxattr(rel)
	})
}

func (d *Driver) Removexattr(path, name string) error {
	_, err := router.Dispatch(d.router, path, func(v views.View, rel string) (struct{}, error) {
		return struct{}{}, v.Removexattr(rel, name)
	})
	return err
}
