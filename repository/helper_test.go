package repository

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// mustRunGit runs git with args in dir, failing the test on error.
func mustRunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

// mustInitBareUpstream creates a bare repository seeded with one commit on
// branch main, returning its filesystem path.
func mustInitBareUpstream(t *testing.T) string {
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
	if err := os.WriteFile(filepath.Join(seed, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	mustRunGit(t, seed, "add", "-A")
	mustRunGit(t, seed, "commit", "-m", "initial commit")
	mustRunGit(t, seed, "remote", "add", "origin", upstream)
	mustRunGit(t, seed, "push", "origin", "main")

	return upstream
}

// mustCloneRepository returns a Repository cloned from a freshly seeded
// bare upstream, along with the upstream's filesystem path.
func mustCloneRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	upstream := mustInitBareUpstream(t)

	conf := Config{
		Remote: "file://" + upstream,
		Root:   filepath.Join(t.TempDir(), "clone"),
	}
	r, err := New(conf, "", nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := r.Clone(context.Background()); err != nil {
		t.Fatalf("Clone() error: %v", err)
	}
	return r, upstream
}

// writeAndStage writes content to rel inside r's working tree and stages it.
func writeAndStage(t *testing.T, r *Repository, rel, content string) {
	t.Helper()
	full := r.FullPath(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("mkdir parent of %q: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatalf("write %q: %v", rel, err)
	}
	if err := r.IndexAdd(context.Background(), rel); err != nil {
		t.Fatalf("IndexAdd(%q): %v", rel, err)
	}
}
