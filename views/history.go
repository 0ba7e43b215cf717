package views

import "syscall"

// HistoryView is read-only and exposes the commit cache as a two-level
// directory tree: a root listing date buckets, and each date bucket
// listing that date's commit snapshots. date is empty for
// the root view instance.
type HistoryView struct {
	ReadOnlyBase
	ctx  *Context
	date string
}

// NewHistoryView constructs a history view. captures["date"], if present,
// selects one date bucket; otherwise the view serves the history root.
func NewHistoryView(ctx *Context, captures map[string]string) *HistoryView {
	return &HistoryView{ctx: ctx, date: captures["date"]}
}

func (v *HistoryView) Getattr(rel string) (Attr, error) {
	if rel != "/" && rel != "" {
		return Attr{}, ErrNoEnt
	}
	if v.date == "" {
		t := v.ctx.MountTime
		if newest, ok := v.ctx.Commits.Newest(); ok {
			t = newest.Time
		}
		return dirAttr(v.ctx.UID, v.ctx.GID, t), nil
	}
	newest, ok := v.ctx.Commits.NewestOn(v.date)
	if !ok {
		return Attr{}, ErrNoEnt
	}
	return dirAttr(v.ctx.UID, v.ctx.GID, newest.Time), nil
}

func (v *HistoryView) Readdir(rel string) ([]DirEntry, error) {
	if rel != "/" && rel != "" {
		return nil, ErrNoEnt
	}

	entries := []DirEntry{
		{Name: ".", Mode: syscall.S_IFDIR | 0o555},
		{Name: "..", Mode: syscall.S_IFDIR | 0o555},
	}

	if v.date == "" {
		for _, d := range v.ctx.Commits.Dates() {
			entries = append(entries, DirEntry{Name: d, Mode: syscall.S_IFDIR | 0o555})
		}
		return entries, nil
	}

	commits, ok := v.ctx.Commits.CommitsOn(v.date)
	if !ok {
		return nil, ErrNoEnt
	}
	for _, c := range commits {
		entries = append(entries, DirEntry{Name: c.EntryName(), Mode: syscall.S_IFDIR | 0o555})
	}
	return entries, nil
}
