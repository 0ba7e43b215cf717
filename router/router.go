// Package router maps incoming filesystem-operation paths to materialized
// views: a fixed regex table plus an LRU-cached instantiation step — no
// runtime attribute lookup.
package router

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gitfsio/gitfs/fetchworker"
	"github.com/gitfsio/gitfs/internal/metrics"
	"github.com/gitfsio/gitfs/syncstate"
	"github.com/gitfsio/gitfs/syncworker"
	"github.com/gitfsio/gitfs/viewcache"
	"github.com/gitfsio/gitfs/views"
)

// route pairs a compiled regex against one of the view constructors.
type route struct {
	re  *regexp.Regexp
	new func(ctx *views.Context, captures map[string]string) views.View
}

// Router holds the ordered route table and the bounded view cache.
type Router struct {
	ctx    *views.Context
	routes []route
	cache  *viewcache.Cache[views.View]

	state  *syncstate.SyncState
	sync   *syncworker.Worker
	fetch  *fetchworker.Worker
}

// New builds the router for one mount, registering routes from most
// specific to least: commit snapshot first, history date bucket next,
// history root, current, then the mount-root index.
func New(ctx *views.Context, cacheSize int, sw *syncworker.Worker, fw *fetchworker.Worker) *Router {
	hist := regexp.QuoteMeta(strings.TrimPrefix(ctx.HistoryPath, "/"))
	curr := regexp.QuoteMeta(strings.TrimPrefix(ctx.CurrentPath, "/"))

	r := &Router{ctx: ctx, cache: viewcache.New[views.View](cacheSize), state: ctx.State, sync: sw, fetch: fw}

	r.routes = append(r.routes,
		route{
			re: regexp.MustCompile(`^/` + hist + `/(?P<date>\d{4}-\d{1,2}-\d{1,2})/(?P<time>\d{2}-\d{2}-\d{2})-(?P<commit_sha1>[0-9a-f]{10})`),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewCommitView(ctx, captures)
			},
		},
		route{
			re: regexp.MustCompile(`^/` + hist + `/(?P<date>\d{4}-\d{1,2}-\d{1,2})`),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewHistoryView(ctx, captures)
			},
		},
		route{
			re: regexp.MustCompile(`^/` + hist),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewHistoryView(ctx, captures)
			},
		},
	)

	if ctx.CurrentPath != "/" {
		r.routes = append(r.routes, route{
			re: regexp.MustCompile(`^/` + curr),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewCurrentView(ctx, captures)
			},
		})
		r.routes = append(r.routes, route{
			re: regexp.MustCompile(`^/`),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewIndexView(ctx, captures)
			},
		})
	} else {
		r.routes = append(r.routes, route{
			re: regexp.MustCompile(`^/`),
			new: func(ctx *views.Context, captures map[string]string) views.View {
				return views.NewCurrentView(ctx, captures)
			},
		})
	}

	return r
}

// normalize collapses empty, whitespace-only, or single-control-character
// paths to "/" per step 2.
func normalize(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return "/"
	}
	if len(p) == 1 && p[0] < 0x20 {
		return "/"
	}
	return p
}

// resolve implements route matching steps 2-5: normalize, find the first
// matching route, split into cache key + relative path, and either reuse
// or instantiate the view.
func (r *Router) resolve(path string) (views.View, string, error) {
	path = normalize(path)

	for _, rt := range r.routes {
		loc := rt.re.FindStringSubmatchIndex(path)
		if loc == nil || loc[0] != 0 {
			continue
		}
		prefix := path[:loc[1]]
		rel := path[loc[1]:]
		if !strings.HasPrefix(rel, "/") {
			rel = "/" + rel
		}

		captures := map[string]string{}
		for i, name := range rt.re.SubexpNames() {
			if name == "" {
				continue
			}
			start, end := loc[2*i], loc[2*i+1]
			if start >= 0 {
				captures[name] = path[start:end]
			}
		}

		key := prefix
		for _, v := range []string{captures["date"], captures["time"], captures["commit_sha1"]} {
			if v != "" {
				key += "\x00" + v
			}
		}

		if cached, ok := r.cache.Get(key); ok {
			return cached, rel, nil
		}
		view := rt.new(r.ctx, captures)
		r.cache.Add(key, view)
		metrics.SetViewCacheSize(r.ctx.Branch, r.cache.Len())
		return view, rel, nil
	}

	return nil, "", fmt.Errorf("no route matched %q", path)
}

// Dispatch runs fn against the view resolved for path, clearing the idle
// event around the call so SyncWorker can tell quiescent periods from
// in-flight operations.
func Dispatch[T any](r *Router, path string, fn func(v views.View, rel string) (T, error)) (T, error) {
	var zero T
	view, rel, err := r.resolve(path)
	if err != nil {
		return zero, err
	}
	r.state.Idle.Clear()
	defer r.state.Idle.Set()
	return fn(view, rel)
}

// Init starts the background workers: the mount driver calls this once,
// on mount, to start the SyncWorker and FetchWorker loops.
func (r *Router) Init() {
	go r.sync.Run()
	go r.fetch.Run()
}

// Destroy implements the unmount sequence: assert
// shutting_down and fetch (to wake a sleeping FetchWorker), wait for both
// workers to exit, then recursively delete the clone path.
func (r *Router) Destroy() {
	r.state.ShuttingDown.Set()
	r.state.Fetch.Set()
	r.sync.Wait()
	r.fetch.Wait()
	_ = os.RemoveAll(r.ctx.RepoPath)
}
