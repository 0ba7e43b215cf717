package views

import "syscall"

// IndexView synthesizes the mount root when current_path != "/": a
// directory containing exactly the current and history entry names.
type IndexView struct {
	ReadOnlyBase
	ctx *Context
}

// NewIndexView constructs the mount-root view.
func NewIndexView(ctx *Context, captures map[string]string) *IndexView {
	return &IndexView{ctx: ctx}
}

func (v *IndexView) Getattr(rel string) (Attr, error) {
	if rel != "/" && rel != "" {
		return Attr{}, ErrNoEnt
	}
	return Attr{
		Mode:  syscall.S_IFDIR | 0o555,
		Nlink: 2,
		UID:   v.ctx.UID,
		GID:   v.ctx.GID,
		Atime: v.ctx.MountTime,
		Mtime: v.ctx.MountTime,
		Ctime: v.ctx.MountTime,
	}, nil
}

func (v *IndexView) Readdir(rel string) ([]DirEntry, error) {
	if rel != "/" && rel != "" {
		return nil, ErrNoEnt
	}
	return []DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR | 0o555},
		{Name: "..", Mode: syscall.S_IFDIR | 0o555},
		{Name: v.ctx.CurrentPath, Mode: syscall.S_IFDIR | 0o755},
		{Name: v.ctx.HistoryPath, Mode: syscall.S_IFDIR | 0o555},
	}, nil
}
