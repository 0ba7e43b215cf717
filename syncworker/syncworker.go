// Package syncworker implements the background loop that drains the
// commit queue, coalesces pending jobs, commits, fetches, merges, and
// pushes.
package syncworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/internal/metrics"
	"github.com/gitfsio/gitfs/merge"
	"github.com/gitfsio/gitfs/repository"
	"github.com/gitfsio/gitfs/syncstate"
)

// Config bundles the parameters needed to run a SyncWorker.
type Config struct {
	Author, Committer repository.Signature
	Queue             *commitqueue.Queue
	Repo              *repository.Repository
	Upstream          string
	Branch            string
	Timeout           time.Duration
	MinIdleTimes      int
	Strategy          merge.Strategy
	Commits           *commitcache.Cache
	Ignore            *ignorecache.Cache
	State             *syncstate.SyncState
	ExcludeFile       string
	HardIgnore        []string
	Log               *slog.Logger
}

// Worker runs the main loop.
type Worker struct {
	cfg  Config
	done chan struct{}
}

// New constructs a SyncWorker. Strategy defaults to merge.AcceptMine.
func New(cfg Config) *Worker {
	if cfg.Strategy == nil {
		cfg.Strategy = merge.AcceptMine{Author: cfg.Author, Committer: cfg.Committer}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Worker{cfg: cfg, done: make(chan struct{})}
}

// Wait blocks until Run has returned.
func (w *Worker) Wait() { <-w.done }

// Run is the main loop. It returns (closing done) once shutting_down is set.
func (w *Worker) Run() {
	defer close(w.done)
	st := w.cfg.State

	var commits []commitqueue.Job
	idleTimes := 0

	for {
		if st.ShuttingDown.IsSet() {
			return
		}

		job, ok := w.cfg.Queue.Get(w.cfg.Timeout)
		if ok {
			commits = append(commits, job)
			idleTimes = 0
			st.Idle.Clear()
			continue
		}

		if idleTimes > w.cfg.MinIdleTimes {
			st.Idle.Set()
		}
		idleTimes++
		metrics.SetQueueDepth(w.cfg.Branch, w.cfg.Queue.Len())
		commits = w.onIdle(commits)
	}
}

func (w *Worker) onIdle(commits []commitqueue.Job) []commitqueue.Job {
	st := w.cfg.State
	st.Syncing.Set()
	metrics.SetWriters(w.cfg.Branch, st.Writers())
	if len(commits) > 0 {
		w.cfg.Log.Debug("pending writes", "count", len(commits))
	}

	if !st.WritersZero() {
		return commits
	}

	if len(commits) > 0 {
		message := coalesce(commits)
		if err := w.commit(message); err != nil {
			w.cfg.Log.Error("commit failed", "err", err)
		}
		commits = nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		if w.sync() {
			return commits
		}
		delay := time.Duration(1<<uint(attempt))*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
		time.Sleep(delay)
	}
	w.cfg.Log.Error("sync failed after 5 attempts")
	return commits
}

// coalesce implements the coalescing rule: one job uses its
// message verbatim; many jobs produce "Update K items. Added A items.
// Removed R items." with zero-count clauses omitted.
func coalesce(jobs []commitqueue.Job) string {
	if len(jobs) == 1 {
		return jobs[0].Message
	}

	union := map[string]struct{}{}
	added, removed := 0, 0
	for _, j := range jobs {
		if j.Add != "" {
			union[j.Add] = struct{}{}
			added++
		}
		if j.Remove != "" {
			union[j.Remove] = struct{}{}
			removed++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Update %d items.", len(union))
	if added > 0 {
		fmt.Fprintf(&b, " Added %d items.", added)
	}
	if removed > 0 {
		fmt.Fprintf(&b, " Removed %d items.", removed)
	}
	return strings.TrimSpace(b.String())
}

// commit records the current HEAD, commits, and refreshes the commit
// cache on success; on an empty delta it rewinds the branch ref so the
// tip doesn't move, matching the repository facade's "no commit" contract.
func (w *Worker) commit(message string) error {
	ctx := context.Background()
	start := time.Now()
	oldTip, err := w.cfg.Repo.Hash(ctx, "HEAD")
	if err != nil {
		return err
	}

	commit, err := w.cfg.Repo.Commit(ctx, message, w.cfg.Author, w.cfg.Committer)
	defer func() { _ = w.cfg.Repo.CheckoutHead(ctx, true) }()

	if err != nil {
		if errors.Is(err, repository.ErrNoCommit) {
			return w.cfg.Repo.CreateReference(ctx, "refs/heads/"+w.cfg.Branch, oldTip, true)
		}
		return err
	}

	if commit != nil {
		metrics.RecordCommit(w.cfg.Branch, start)
		w.refreshCommits(ctx)
	}
	return nil
}

func (w *Worker) refreshCommits(ctx context.Context) {
	all, err := w.cfg.Repo.Walk(ctx)
	if err != nil {
		w.cfg.Log.Error("walk for commit cache refresh failed", "err", err)
		return
	}
	w.cfg.Commits.Refresh(all)
}

// sync fetches and merges if the repo is behind, then pushes if ahead.
func (w *Worker) sync() bool {
	ctx := context.Background()
	st := w.cfg.State

	needToPush, err := w.cfg.Repo.Ahead(ctx)
	if err != nil {
		w.cfg.Log.Error("ahead check failed", "err", err)
	}
	st.SyncDone.Clear()

	if w.cfg.Repo.Behind() {
		if _, err := w.cfg.Repo.Fetch(ctx); err != nil {
			w.cfg.Log.Error("fetch failed", "err", err)
			metrics.RecordSync(w.cfg.Branch, false)
			return false
		}
		if err := w.merge(ctx); err != nil {
			w.cfg.Log.Error("merge failed", "err", err)
			metrics.RecordSync(w.cfg.Branch, false)
			return false
		}
		needToPush = true
	}

	if needToPush {
		st.RemoteOperation.Lock()
		err := w.cfg.Repo.Push(ctx)
		st.RemoteOperation.Unlock()

		if err != nil {
			st.PushSuccessful.Clear()
			st.Fetch.Set()
			metrics.RecordSync(w.cfg.Branch, false)
			return false
		}
		w.cfg.Repo.SetBehind(false)
		st.Syncing.Clear()
		st.SyncDone.Set()
		st.PushSuccessful.Set()
		metrics.RecordSync(w.cfg.Branch, true)
		return true
	}

	st.SyncDone.Set()
	st.Syncing.Clear()
	metrics.RecordSync(w.cfg.Branch, true)
	return true
}

// merge invokes the configured merge strategy then refreshes the commit
// and ignore caches.
func (w *Worker) merge(ctx context.Context) error {
	if err := w.cfg.Strategy.Merge(ctx, w.cfg.Repo, w.cfg.Branch, w.cfg.Branch, w.cfg.Upstream); err != nil {
		metrics.RecordMerge(w.cfg.Branch, false)
		return err
	}
	metrics.RecordMerge(w.cfg.Branch, true)
	w.refreshCommits(ctx)
	if err := w.cfg.Ignore.Load(w.cfg.Repo.Dir(), w.cfg.ExcludeFile, w.cfg.HardIgnore); err != nil {
		w.cfg.Log.Error("ignore cache reload failed", "err", err)
	}
	return nil
}
