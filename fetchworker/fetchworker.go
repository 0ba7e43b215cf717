// Package fetchworker implements the background loop that periodically
// fetches from upstream and signals catch-up.
package fetchworker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gitfsio/gitfs/internal/metrics"
	"github.com/gitfsio/gitfs/repository"
	"github.com/gitfsio/gitfs/syncstate"
)

// Config bundles the parameters a FetchWorker needs.
type Config struct {
	Repo        *repository.Repository
	State       *syncstate.SyncState
	Branch      string
	Timeout     time.Duration
	IdleTimeout time.Duration
	Log         *slog.Logger
}

// Worker runs the periodic fetch loop.
type Worker struct {
	cfg  Config
	done chan struct{}
}

// New constructs a FetchWorker.
func New(cfg Config) *Worker {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Worker{cfg: cfg, done: make(chan struct{})}
}

// Wait blocks until Run has returned.
func (w *Worker) Wait() { <-w.done }

// Run is the main loop: wait on the fetch event with a timeout that
// shortens while the router reports idle, then fetch and classify the
// result per the error taxonomy.
func (w *Worker) Run() {
	defer close(w.done)
	st := w.cfg.State

	for {
		timeout := w.cfg.Timeout
		if st.Idle.IsSet() {
			timeout = w.cfg.IdleTimeout
		}
		st.Fetch.Wait(timeout)

		if st.ShuttingDown.IsSet() {
			return
		}

		st.RemoteOperation.Lock()
		st.Fetch.Clear()
		wasBehind, err := w.cfg.Repo.Fetch(context.Background())
		st.RemoteOperation.Unlock()

		switch {
		case err == nil:
			metrics.RecordFetch(w.cfg.Branch, true)
			st.FetchSuccessful.Set()
			if wasBehind {
				w.cfg.Log.Info("fetch caught up with upstream")
			}
		case isHardFetchError(err):
			metrics.RecordFetch(w.cfg.Branch, false)
			st.FetchSuccessful.Clear()
			w.cfg.Log.Error("fetch failed", "err", err)
		default:
			// Transient error: keep fetch_successful set so writers
			// aren't gratuitously blocked.
			metrics.RecordFetch(w.cfg.Branch, false)
			w.cfg.Log.Warn("transient fetch error", "err", err)
		}
	}
}

// isHardFetchError classifies errors that are not worth retrying before the
// next tick: repo missing, network unreachable, auth failure.
func isHardFetchError(err error) bool {
	msg := strings.ToLower(err.Error())
	// git names the remote inside the message: "repository '<url>' not found".
	if strings.Contains(msg, "repository '") && strings.Contains(msg, "' not found") {
		return true
	}
	for _, substr := range []string{
		"repository not found",
		"does not appear to be a git repository",
		"network unreachable",
		"could not resolve host",
		"authentication failed",
		"permission denied",
		"no route to host",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
