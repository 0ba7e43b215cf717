package mount

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/fetchworker"
	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/lfs"
	"github.com/gitfsio/gitfs/repository"
	"github.com/gitfsio/gitfs/router"
	"github.com/gitfsio/gitfs/syncstate"
	"github.com/gitfsio/gitfs/syncworker"
	"github.com/gitfsio/gitfs/views"
)

// Driver is the assembled mount: repository, caches, workers, and router.
// A FUSE binding drives it by calling Router() and dispatching kernel
// callbacks through router.Dispatch.
type Driver struct {
	opts    Options
	repo    *repository.Repository
	commits *commitcache.Cache
	ignore  *ignorecache.Cache
	state   *syncstate.SyncState
	queue   *commitqueue.Queue
	router  *router.Router
	log     *slog.Logger
}

// New validates opts, clones the repository, loads the ignore set, and
// wires the commit queue, sync state, and background workers.
func New(ctx context.Context, opts Options, log *slog.Logger) (*Driver, error) {
	if err := opts.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	repoConf := repository.Config{
		Remote:      opts.Remote,
		Branch:      opts.Branch,
		Root:        opts.RepoPath,
		Credentials: opts.Credentials,
		Author:      repository.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail},
		Committer:   repository.Signature{Name: opts.CommitterName, Email: opts.CommitterEmail},
	}
	repo, err := repository.New(repoConf, "", log.With("component", "repository"))
	if err != nil {
		return nil, fmt.Errorf("mount: build repository: %w", err)
	}
	if err := repo.Clone(ctx); err != nil {
		return nil, fmt.Errorf("mount: clone: %w", err)
	}
	if opts.Branch == "" {
		opts.Branch = repo.Branch()
	}

	commits := commitcache.New()
	if all, err := repo.Walk(ctx); err == nil {
		commits.Refresh(all)
	} else {
		log.Error("initial commit cache refresh failed", "err", err)
	}

	ignore := ignorecache.New()
	if err := ignore.Load(repo.Dir(), opts.IgnoreFile, opts.HardIgnore); err != nil {
		return nil, fmt.Errorf("mount: load ignore set: %w", err)
	}

	state := syncstate.New()
	queue := commitqueue.New(1024)

	var lfsHook lfs.Hook
	// Default LFS threshold is effectively disabled; configuring one is a
	// repo_path-local concern left to deployment, not a mount -o option.
	lfsHook = lfs.NewThresholdHook(repo.Dir(), 0)

	vctx := &views.Context{
		Repo:        repo,
		Ignore:      ignore,
		Commits:     commits,
		Queue:       queue,
		State:       state,
		LFS:         lfsHook,
		Log:         log,
		RepoPath:    repo.Dir(),
		MountPath:   opts.MountPoint,
		UID:         opts.UID,
		GID:         opts.GID,
		Branch:      opts.Branch,
		MountTime:   time.Now(),
		MaxSize:     opts.MaxSize,
		MaxOffset:   opts.MaxOffset,
		CurrentPath: opts.CurrentPath,
		HistoryPath: opts.HistoryPath,
	}

	sw := syncworker.New(syncworker.Config{
		Author:       repoConf.Author,
		Committer:    repoConf.Committer,
		Queue:        queue,
		Repo:         repo,
		Upstream:     "origin",
		Branch:       opts.Branch,
		Timeout:      opts.MergeTimeout,
		MinIdleTimes: opts.MinIdleTimes,
		Commits:      commits,
		Ignore:       ignore,
		State:        state,
		ExcludeFile:  opts.IgnoreFile,
		HardIgnore:   opts.HardIgnore,
		Log:          log.With("component", "syncworker"),
	})
	fw := fetchworker.New(fetchworker.Config{
		Repo:        repo,
		State:       state,
		Branch:      opts.Branch,
		Timeout:     opts.FetchTimeout,
		IdleTimeout: opts.IdleFetchTimeout,
		Log:         log.With("component", "fetchworker"),
	})

	r := router.New(vctx, opts.ViewCacheSize, sw, fw)

	return &Driver{opts: opts, repo: repo, commits: commits, ignore: ignore, state: state, queue: queue, router: r, log: log}, nil
}

// Router exposes the router a FUSE binding dispatches kernel callbacks
// through.
func (d *Driver) Router() *router.Router { return d.router }

// Start calls router.Init(), which starts the SyncWorker and FetchWorker
// loops.
func (d *Driver) Start() { d.router.Init() }

// Stop runs the unmount sequence: router.Destroy() asserts shutting_down
// and fetch, joins both workers, and deletes the clone path.
func (d *Driver) Stop() { d.router.Destroy() }
