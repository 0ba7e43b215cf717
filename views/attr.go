package views

import (
	"context"
	"syscall"
	"time"
)

// opCtx returns the context used for the plumbing calls a read path makes
// while servicing a single filesystem operation. Most FUSE bindings don't
// thread a cancellable context through their callback signatures, so
// views use a background context for the short git-plumbing reads they
// issue; workers (which do run long network operations) use real
// per-cycle contexts instead.
func opCtx() context.Context { return context.Background() }

func dirAttr(uid, gid uint32, t time.Time) Attr {
	return Attr{
		Mode:  syscall.S_IFDIR | 0o555,
		Nlink: 2,
		UID:   uid,
		GID:   gid,
		Atime: t,
		Mtime: t,
		Ctime: t,
	}
}
