package views

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/commitqueue"
	"github.com/gitfsio/gitfs/ignorecache"
	"github.com/gitfsio/gitfs/repository"
	"github.com/gitfsio/gitfs/syncstate"
)

func mustRunGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// mustTestRepo creates a clone of a freshly seeded local bare repository and
// returns the repository.Repository facade over it.
func mustTestRepo(t *testing.T) *repository.Repository {
	t.Helper()

	upstream := filepath.Join(t.TempDir(), "upstream.git")
	if err := os.MkdirAll(upstream, 0755); err != nil {
		t.Fatalf("mkdir upstream: %v", err)
	}
	mustRunGit(t, upstream, "init", "--bare", "-b", "main")

	seed := t.TempDir()
	mustRunGit(t, seed, "init", "-b", "main")
	mustRunGit(t, seed, "config", "user.name", "seed")
	mustRunGit(t, seed, "config", "user.email", "seed@localhost")
	if err := os.WriteFile(filepath.Join(seed, "hello.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(seed, "dir"), 0755); err != nil {
		t.Fatalf("mkdir seed dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(seed, "dir", "nested.txt"), []byte("nested\n"), 0644); err != nil {
		t.Fatalf("write seed nested file: %v", err)
	}
	mustRunGit(t, seed, "add", "-A")
	mustRunGit(t, seed, "commit", "-m", "initial commit")
	mustRunGit(t, seed, "remote", "add", "origin", upstream)
	mustRunGit(t, seed, "push", "origin", "main")

	conf := repository.Config{
		Remote: "file://" + upstream,
		Root:   filepath.Join(t.TempDir(), "clone"),
	}
	r, err := repository.New(conf, "", nil)
	if err != nil {
		t.Fatalf("repository.New() error: %v", err)
	}
	if err := r.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	return r
}

// mustTestContext builds a fully wired Context over a fresh repo clone,
// with the commit cache refreshed from the repository's current history.
func mustTestContext(t *testing.T) *Context {
	t.Helper()
	r := mustTestRepo(t)

	commits, err := r.Walk(context.Background())
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	cc := commitcache.New()
	cc.Refresh(commits)

	ic := ignorecache.New()
	if err := ic.Load(r.Dir(), "", nil); err != nil {
		t.Fatalf("ignorecache.Load() error: %v", err)
	}

	return &Context{
		Repo:        r,
		Ignore:      ic,
		Commits:     cc,
		Queue:       commitqueue.New(16),
		State:       syncstate.New(),
		RepoPath:    r.Dir(),
		MountTime:   time.Now(),
		CurrentPath: "current",
		HistoryPath: "history",
	}
}
