// Package mount wires the repository, caches, commit queue, sync state,
// background workers, and router into the single object a FUSE binding
// drives. It owns the mount/unmount lifecycle; binding to
// an actual kernel FUSE interface is external — Driver
// exposes exactly the operations a binding's callback table would call.
package mount

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"time"

	"github.com/gitfsio/gitfs/auth"
)

// Options is the resolved form of the CLI's -o key=value list.
type Options struct {
	Remote     string
	MountPoint string
	RepoPath   string
	Branch     string

	User, Group string
	UID, GID    uint32

	Credentials *auth.Credentials

	CommitterName, CommitterEmail string
	AuthorName, AuthorEmail       string

	MaxSize   int64 // bytes
	MaxOffset int64 // bytes

	FetchTimeout     time.Duration
	MergeTimeout     time.Duration
	IdleFetchTimeout time.Duration
	MinIdleTimes     int

	CurrentPath string
	HistoryPath string

	IgnoreFile string
	HardIgnore []string

	Foreground   bool
	AllowOther   bool
	AllowRoot    bool
	Debug        bool
	MaxOpenFiles int

	ViewCacheSize int
}

const (
	defaultMaxSizeMB = 10
	defaultFetchSecs = 30
	defaultMergeSecs = 5
	defaultViewCache = 40_000
)

// ValidateAndApplyDefaults fills in the option defaults and enforces the
// allow_other/allow_root mutual exclusion for non-root mounts.
func (o *Options) ValidateAndApplyDefaults() error {
	if o.Remote == "" {
		return fmt.Errorf("remote url cannot be empty")
	}
	if o.MountPoint == "" {
		return fmt.Errorf("mount point cannot be empty")
	}
	if o.RepoPath == "" {
		return fmt.Errorf("repo_path cannot be empty")
	}

	if o.CurrentPath == "" {
		o.CurrentPath = "current"
	}
	if o.HistoryPath == "" {
		o.HistoryPath = "history"
	}
	if o.MaxSize == 0 {
		o.MaxSize = defaultMaxSizeMB * 1024 * 1024
	}
	if o.FetchTimeout == 0 {
		o.FetchTimeout = defaultFetchSecs * time.Second
	}
	if o.MergeTimeout == 0 {
		o.MergeTimeout = defaultMergeSecs * time.Second
	}
	if o.IdleFetchTimeout == 0 {
		o.IdleFetchTimeout = o.FetchTimeout
	}
	if o.ViewCacheSize == 0 {
		o.ViewCacheSize = defaultViewCache
	}
	if o.CommitterName == "" {
		o.CommitterName = "gitfs"
	}
	if o.CommitterEmail == "" {
		o.CommitterEmail = "gitfs@localhost"
	}
	if o.AuthorName == "" {
		o.AuthorName = o.CommitterName
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = o.CommitterEmail
	}

	if o.AllowOther && o.AllowRoot {
		return fmt.Errorf("allow_other and allow_root are mutually exclusive")
	}

	if o.UID == 0 && o.User != "" {
		u, err := user.Lookup(o.User)
		if err != nil {
			return fmt.Errorf("lookup user %q: %w", o.User, err)
		}
		uid, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return err
		}
		o.UID = uint32(uid)
	}
	if o.UID == 0 {
		o.UID = uint32(os.Getuid())
	}

	if o.GID == 0 && o.Group != "" {
		g, err := user.LookupGroup(o.Group)
		if err != nil {
			return fmt.Errorf("lookup group %q: %w", o.Group, err)
		}
		gid, err := strconv.ParseUint(g.Gid, 10, 32)
		if err != nil {
			return err
		}
		o.GID = uint32(gid)
	}
	if o.GID == 0 {
		o.GID = uint32(os.Getgid())
	}

	return nil
}

// FuseOptionString renders the mount options (fsname=remote URL,
// subtype=gitfs, read-write, plus allow_other/allow_root) in the
// comma-separated "-o" form most FUSE bindings expect.
func (o *Options) FuseOptionString() string {
	opts := fmt.Sprintf("fsname=%s,subtype=gitfs,rw", o.Remote)
	if o.AllowOther {
		opts += ",allow_other"
	}
	if o.AllowRoot {
		opts += ",allow_root"
	}
	return opts
}
