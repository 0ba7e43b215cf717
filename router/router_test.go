package router

import (
	"testing"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/syncstate"
	"github.com/gitfsio/gitfs/views"
)

func testContext(currentPath, historyPath string) *views.Context {
	return &views.Context{
		Commits:     commitcache.New(),
		Ignore:      ignorecache.New(),
		Queue:       commitqueue.New(16),
		State:       syncstate.New(),
		CurrentPath: currentPath,
		HistoryPath: historyPath,
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already root", "/", "/"},
		{"empty", "", "/"},
		{"whitespace only", "   ", "/"},
		{"single control char", "\x01", "/"},
		{"ordinary path untouched", "/current/a/b", "/current/a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalize(tt.in); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRouter_resolve_routesToExpectedView(t *testing.T) {
	ctx := testContext("current", "history")
	r := New(ctx, 16, nil, nil)

	tests := []struct {
		name     string
		path     string
		wantType string
		wantRel  string
	}{
		{"mount root", "/", "*views.IndexView", "/"},
		{"current root", "/current", "*views.CurrentView", "/"},
		{"current subpath", "/current/a/b.txt", "*views.CurrentView", "/a/b.txt"},
		{"history root", "/history", "*views.HistoryView", "/"},
		{"history date bucket", "/history/2024-01-02", "*views.HistoryView", "/"},
		{"history date bucket subpath", "/history/2024-01-02/extra", "*views.HistoryView", "/extra"},
		{"commit snapshot root", "/history/2024-01-02/10-20-30-0123456789", "*views.CommitView", "/"},
		{"commit snapshot subpath", "/history/2024-01-02/10-20-30-0123456789/dir/file.go", "*views.CommitView", "/dir/file.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, rel, err := r.resolve(tt.path)
			if err != nil {
				t.Fatalf("resolve(%q) error: %v", tt.path, err)
			}
			if rel != tt.wantRel {
				t.Errorf("resolve(%q) rel = %q, want %q", tt.path, rel, tt.wantRel)
			}
			if gotType := typeName(v); gotType != tt.wantType {
				t.Errorf("resolve(%q) type = %s, want %s", tt.path, gotType, tt.wantType)
			}
		})
	}
}

func TestRouter_resolve_currentPathRootServesCurrentAtMountRoot(t *testing.T) {
	ctx := testContext("/", "history")
	r := New(ctx, 16, nil, nil)

	v, rel, err := r.resolve("/anything")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	if rel != "/anything" {
		t.Errorf("rel = %q, want /anything", rel)
	}
	if typeName(v) != "*views.CurrentView" {
		t.Errorf("type = %s, want *views.CurrentView", typeName(v))
	}
}

func TestRouter_resolve_cachesViewsByPrefix(t *testing.T) {
	ctx := testContext("current", "history")
	r := New(ctx, 16, nil, nil)

	v1, _, err := r.resolve("/current/a.txt")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	v2, _, err := r.resolve("/current/b.txt")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	if v1 != v2 {
		t.Errorf("expected the same CurrentView instance to be reused across paths under /current")
	}

	cv1, _, err := r.resolve("/history/2024-01-02/10-20-30-0123456789/a")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	cv2, _, err := r.resolve("/history/2024-01-02/10-20-30-0123456789/b")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	if cv1 != cv2 {
		t.Errorf("expected the same CommitView instance to be reused for the same commit")
	}

	cv3, _, err := r.resolve("/history/2024-01-02/10-20-30-9999999999/a")
	if err != nil {
		t.Fatalf("resolve() error: %v", err)
	}
	if cv1 == cv3 {
		t.Errorf("expected a different commit sha to produce a different CommitView instance")
	}
}

func TestDispatch_clearsAndSetsIdle(t *testing.T) {
	ctx := testContext("current", "history")
	r := New(ctx, 16, nil, nil)

	if ctx.State.Idle.IsSet() {
		t.Fatalf("expected Idle to start cleared")
	}

	var idleDuringCall bool
	_, err := Dispatch(r, "/current/a.txt", func(v views.View, rel string) (struct{}, error) {
		idleDuringCall = ctx.State.Idle.IsSet()
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if idleDuringCall {
		t.Errorf("expected Idle to be cleared while a dispatch is in flight")
	}
	if !ctx.State.Idle.IsSet() {
		t.Errorf("expected Idle to be set again after Dispatch returns")
	}
}

func typeName(v views.View) string {
	switch v.(type) {
	case *views.IndexView:
		return "*views.IndexView"
	case *views.CurrentView:
		return "*views.CurrentView"
	case *views.HistoryView:
		return "*views.HistoryView"
	case *views.CommitView:
		return "*views.CommitView"
	default:
		return "unknown"
	}
}
