package syncworker

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

func mustTestRepo(t *testing.T) (*repository.Repository, string) {
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
	mustRunGit(t, seed, "add", "-A")
	mustRunGit(t, seed, "commit", "-m", "initial commit")
	mustRunGit(t, seed, "remote", "add", "origin", upstream)
	mustRunGit(t, seed, "push", "origin", "main")

	conf := repository.Config{
		Remote: "file://" + upstream,
		Branch: "main",
		Root:   filepath.Join(t.TempDir(), "clone"),
	}
	r, err := repository.New(conf, "", nil)
	if err != nil {
		t.Fatalf("repository.New() error: %v", err)
	}
	if err := r.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	return r, upstream
}

func TestWorker_commitsQueuedChange(t *testing.T) {
	repo, upstream := mustTestRepo(t)
	if err := os.WriteFile(filepath.Join(repo.Dir(), "new_file"), []byte("Just a small file"), 0644); err != nil {
		t.Fatalf("write new_file: %v", err)
	}
	if err := repo.IndexAdd(context.Background(), "new_file"); err != nil {
		t.Fatalf("IndexAdd() error: %v", err)
	}

	queue := commitqueue.New(16)
	queue.Put(commitqueue.Job{Add: "new_file", Message: "Update /new_file"})

	st := syncstate.New()
	w := New(Config{
		Author:       repository.Signature{Name: "gitfs", Email: "gitfs@localhost"},
		Committer:    repository.Signature{Name: "gitfs", Email: "gitfs@localhost"},
		Queue:        queue,
		Repo:         repo,
		Upstream:     "origin",
		Branch:       "main",
		Timeout:      20 * time.Millisecond,
		MinIdleTimes: 1,
		Commits:      commitcache.New(),
		Ignore:       ignorecache.New(),
		State:        st,
	})

	go w.Run()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if st.PushSuccessful.IsSet() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	st.ShuttingDown.Set()
	w.Wait()

	if !st.PushSuccessful.IsSet() {
		t.Fatalf("PushSuccessful never set; sync loop did not push the queued commit")
	}

	out, err := exec.Command("git", "--git-dir", upstream, "log", "-1", "--format=%s").Output()
	if err != nil {
		t.Fatalf("git log upstream: %v", err)
	}
	if got := string(out); got != "Update /new_file\n" {
		t.Errorf("upstream HEAD message = %q, want %q", got, "Update /new_file\n")
	}

	commits, ok := w.cfg.Commits.CommitsOn(w.cfg.Commits.Dates()[0])
	if !ok || len(commits) == 0 {
		t.Fatalf("commit cache was not refreshed after commit")
	}
}

func TestCoalesce_singleJob(t *testing.T) {
	jobs := []commitqueue.Job{{Add: "a", Message: "Update /a"}}
	if got := coalesce(jobs); got != "Update /a" {
		t.Errorf("coalesce() = %q, want %q", got, "Update /a")
	}
}

func TestCoalesce_manyJobs(t *testing.T) {
	jobs := []commitqueue.Job{
		{Add: "a", Message: "Update /a"},
		{Add: "b", Message: "Update /b"},
		{Remove: "c", Message: "Deleted /c"},
	}
	got := coalesce(jobs)
	want := "Update 3 items. Added 2 items. Removed 1 items."
	if got != want {
		t.Errorf("coalesce() = %q, want %q", got, want)
	}
}

func TestCoalesce_onlyAdds(t *testing.T) {
	jobs := []commitqueue.Job{
		{Add: "a", Message: "Update /a"},
		{Add: "b", Message: "Update /b"},
	}
	got := coalesce(jobs)
	want := "Update 2 items. Added 2 items."
	if got != want {
		t.Errorf("coalesce() = %q, want %q", got, want)
	}
}
