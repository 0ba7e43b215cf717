// Package views implements the filesystem-operation surface gitfs exposes
// under a mount point: a synthesized index listing, a writable current
// view, and read-only history/commit views over past snapshots.
//
// There is no FUSE binding in this package — the kernel-facing C library is
// an external collaborator and is represented here purely as
// the View interface. A real mount driver (package mount) adapts a FUSE
// request loop onto View; nothing in this package depends on any
// particular FUSE binding or Go FUSE library existing.
//
// Every view is stateless between calls — it holds only the shared
// Context bundle (repository, caches, mount config) and any regex
// captures the router extracted from the request path — so the owning LRU
// cache (package viewcache) can evict and recreate them freely.
package views
