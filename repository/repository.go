package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gitfsio/gitfs/commitcache"
	"github.com/gitfsio/gitfs/giturl"
	"github.com/gitfsio/gitfs/internal/lock"
	"github.com/gitfsio/gitfs/internal/utils"
)

const defaultRemoteName = "origin"

var (
	ErrNoCommit  = errors.New("no commit produced, index delta was empty")
	ErrNotFound  = errors.New("object not found")
	ErrConflicts = errors.New("merge produced conflicts")
)

// Repository is the facade the rest of gitfs uses instead of shelling out
// to git directly. It is safe for concurrent use: every call that touches
// the working tree takes Lock (writers) or RLock (reads).
//
// It drives the git binary as a subprocess rather than a cgo/libgit2
// binding, treating the git object database as assumed available on the
// host.
type Repository struct {
	cmd string

	lock lock.RWMutex

	gitURL *giturl.URL
	remote string
	branch string
	dir    string

	conf Config
	log  *slog.Logger

	behind bool
}

// New creates a Repository for conf. The remote is not cloned until Clone
// is called.
func New(conf Config, gitExec string, log *slog.Logger) (*Repository, error) {
	if err := conf.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}

	gURL, err := giturl.Parse(conf.Remote)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("repo", gURL.Repo)

	if gitExec == "" {
		gitExec = exec.Command("git").String()
	}

	// The remote is trimmed but not case-folded: local and scp-style
	// remotes carry case-sensitive paths.
	return &Repository{
		cmd:    gitExec,
		gitURL: gURL,
		remote: strings.TrimRight(strings.TrimSpace(conf.Remote), "/"),
		branch: conf.Branch,
		dir:    conf.Root,
		conf:   conf,
		log:    log,
	}, nil
}

// Dir returns the absolute path to the working-tree clone.
func (r *Repository) Dir() string { return r.dir }

// Branch returns the tracked branch name, resolved after Clone if it was
// empty in Config.
func (r *Repository) Branch() string { return r.branch }

// Remote returns the repository's remote URL.
func (r *Repository) Remote() string { return r.remote }

// FullPath resolves rel (which may or may not have a leading slash) to an
// absolute path inside the working tree.
func (r *Repository) FullPath(rel string) string {
	return filepath.Join(r.dir, strings.TrimPrefix(rel, "/"))
}

// Behind reports whether the last Fetch observed the remote ahead of the
// local tracked branch.
func (r *Repository) Behind() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.behind
}

// SetBehind overrides the behind flag; used by the sync worker once it has
// caught up.
func (r *Repository) SetBehind(v bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.behind = v
}

func (r *Repository) envs(ctx context.Context) ([]string, error) {
	if r.conf.Credentials == nil {
		return nil, nil
	}
	return r.conf.Credentials.WithScratchDir(r.dir).Env(ctx, r.remote)
}

func (r *Repository) git(ctx context.Context, cwd string, args ...string) (string, error) {
	if cwd == "" {
		cwd = r.dir
	}
	return utils.RunCommand(ctx, r.log, nil, cwd, r.cmd, args...)
}

func (r *Repository) gitAuthenticated(ctx context.Context, args ...string) (string, error) {
	envs, err := r.envs(ctx)
	if err != nil {
		return "", err
	}
	return utils.RunCommand(ctx, r.log, envs, r.dir, r.cmd, args...)
}

// Clone creates a single-branch local clone of the remote at Root. If
// Branch is empty, it resolves and adopts the remote's default branch.
func (r *Repository) Clone(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := utils.ReCreate(r.dir); err != nil {
		return err
	}

	if r.branch == "" {
		branch, err := r.remoteDefaultBranch(ctx)
		if err != nil {
			return fmt.Errorf("unable to resolve remote default branch: %w", err)
		}
		r.branch = branch
	}

	envs, err := r.envs(ctx)
	if err != nil {
		return err
	}

	args := []string{"clone", "--branch", r.branch, "--single-branch", "--origin", defaultRemoteName, r.remote, r.dir}
	if _, err := utils.RunCommand(ctx, r.log, envs, "", r.cmd, args...); err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	if _, err := r.git(ctx, "", "config", "user.name", r.conf.Committer.Name); err != nil {
		return err
	}
	if _, err := r.git(ctx, "", "config", "user.email", r.conf.Committer.Email); err != nil {
		return err
	}

	return nil
}

func (r *Repository) remoteDefaultBranch(ctx context.Context) (string, error) {
	envs, err := r.envs(ctx)
	if err != nil {
		return "", err
	}
	out, err := utils.RunCommand(ctx, r.log, envs, "", r.cmd, "ls-remote", "--symref", r.remote, "HEAD")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "ref:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return strings.TrimPrefix(fields[1], "refs/heads/"), nil
			}
		}
	}
	return "", fmt.Errorf("unable to parse remote HEAD symref from %q", out)
}

// Fetch fetches branch from upstream and reports whether the remote was
// ahead of the local tip (wasBehind). It also updates the Behind flag.
func (r *Repository) Fetch(ctx context.Context) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	envs, err := r.envs(ctx)
	if err != nil {
		return false, err
	}
	if _, err := utils.RunCommand(ctx, r.log, envs, r.dir, r.cmd, "fetch", defaultRemoteName, r.branch); err != nil {
		return false, fmt.Errorf("fetch failed: %w", err)
	}

	behind, err := r.revListCount(ctx, "HEAD.."+defaultRemoteName+"/"+r.branch)
	if err != nil {
		return false, err
	}

	wasBehind := behind > 0
	r.behind = wasBehind
	return wasBehind, nil
}

// Ahead reports whether the local tracked branch has commits the upstream
// ref does not.
func (r *Repository) Ahead(ctx context.Context) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ahead, err := r.revListCount(ctx, defaultRemoteName+"/"+r.branch+"..HEAD")
	if err != nil {
		return false, err
	}
	return ahead > 0, nil
}

func (r *Repository) revListCount(ctx context.Context, revRange string) (int, error) {
	out, err := r.git(ctx, "", "rev-list", "--count", revRange)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(out))
}

// Push pushes HEAD to branch on the upstream remote. The local
// branch is the single source of truth after an accept-mine merge, so a
// plain push suffices; a fast-forward is guaranteed by the merge
// invariant.
func (r *Repository) Push(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	envs, err := r.envs(ctx)
	if err != nil {
		return err
	}
	refspec := fmt.Sprintf("HEAD:refs/heads/%s", r.branch)
	if _, err := utils.RunCommand(ctx, r.log, envs, r.dir, r.cmd, "push", defaultRemoteName, refspec); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}

// Hash resolves ref to a full commit hash.
func (r *Repository) Hash(ctx context.Context, ref string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out, err := r.git(ctx, "", "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, ref, err)
	}
	return strings.TrimSpace(out), nil
}

// LookupReference resolves a fully-qualified ref name to its target hash,
// returning ErrNotFound if it doesn't exist.
func (r *Repository) LookupReference(ctx context.Context, name string) (string, error) {
	return r.Hash(ctx, name)
}

// CreateReference force-updates (or creates) name to point at target.
func (r *Repository) CreateReference(ctx context.Context, name, target string, force bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	args := []string{"update-ref", name, target}
	_, err := r.git(ctx, "", args...)
	return err
}

// DeleteReference removes a ref, used to clean up the merge strategy's
// scratch branches.
func (r *Repository) DeleteReference(ctx context.Context, name string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, err := r.git(ctx, "", "update-ref", "-d", name)
	return err
}

// CheckoutHead resets the working tree and index to match HEAD.
func (r *Repository) CheckoutHead(ctx context.Context, force bool) error {
	return r.Checkout(ctx, "HEAD", force)
}

// Checkout checks out ref into the working tree. A fully-qualified
// refs/heads/ ref is checked out by its branch name so HEAD stays
// attached — a detached HEAD would stop later commits from advancing
// the branch tip.
func (r *Repository) Checkout(ctx context.Context, ref string, force bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	args := []string{"checkout"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, strings.TrimPrefix(ref, "refs/heads/"))
	_, err := r.git(ctx, "", args...)
	return err
}

// Commit commits the currently staged index delta. If there is nothing
// staged, it returns ErrNoCommit and the caller is expected to reset the
// branch ref back to its previous target to keep the tip stable.
func (r *Repository) Commit(ctx context.Context, message string, author, committer Signature) (*commitcache.Commit, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	staged, err := r.git(ctx, "", "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(staged) == "" {
		return nil, ErrNoCommit
	}

	envs := []string{
		"GIT_AUTHOR_NAME=" + author.Name, "GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_COMMITTER_NAME=" + committer.Name, "GIT_COMMITTER_EMAIL=" + committer.Email,
	}
	if _, err := utils.RunCommand(ctx, r.log, envs, r.dir, r.cmd, "commit", "--no-verify", "-m", message); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}

	hash, err := r.git(ctx, "", "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	stamp, err := r.commitTime(ctx, strings.TrimSpace(hash))
	if err != nil {
		return nil, err
	}

	return &commitcache.Commit{ID: shortHash(strings.TrimSpace(hash)), Time: stamp}, nil
}

func (r *Repository) commitTime(ctx context.Context, hash string) (time.Time, error) {
	out, err := r.git(ctx, "", "show", "--no-patch", "--format=%ct", hash)
	if err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

func shortHash(full string) string {
	if len(full) < 10 {
		return full
	}
	return full[:10]
}

// Walk returns every commit reachable from the tracked branch, in
// whatever order git log yields them — commitcache sorts by timestamp on
// Refresh.
func (r *Repository) Walk(ctx context.Context) ([]commitcache.Commit, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.logCommits(ctx, r.branch)
}

func (r *Repository) logCommits(ctx context.Context, revRange string) ([]commitcache.Commit, error) {
	out, err := r.git(ctx, "", "log", "--pretty=format:%H %ct", revRange)
	if err != nil {
		return nil, err
	}
	return parseCommitLog(out)
}

func parseCommitLog(out string) ([]commitcache.Commit, error) {
	var commits []commitcache.Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		sec, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse commit timestamp %q: %w", fields[1], err)
		}
		commits = append(commits, commitcache.Commit{ID: shortHash(fields[0]), Time: time.Unix(sec, 0)})
	}
	return commits, nil
}

// CommitsBetween lists the commits reachable from ref2 but not ref1, in
// chronological (oldest-first) order — used by the accept-mine merge
// strategy to build its diverge sets.
func (r *Repository) CommitsBetween(ctx context.Context, ref1, ref2 string) ([]commitcache.Commit, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out, err := r.git(ctx, "", "log", "--reverse", "--pretty=format:%H %ct", ref1+".."+ref2)
	if err != nil {
		return nil, err
	}
	return parseCommitLog(out)
}

// CommitMessage returns the subject of a commit.
func (r *Repository) CommitMessage(ctx context.Context, hash string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out, err := r.git(ctx, "", "show", "--no-patch", "--format=%s", hash)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ShowBlob returns the content of path as it exists in ref, byte for
// byte. It bypasses the shared command runner, whose whitespace trimming
// would corrupt blob content.
func (r *Repository) ShowBlob(ctx context.Context, ref, path string) ([]byte, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	path = strings.TrimPrefix(path, "/")

	cmd := exec.CommandContext(ctx, r.cmd, "cat-file", "blob", ref+":"+path)
	cmd.Dir = r.dir
	cmd.WaitDelay = 5 * time.Second
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, ref, path)
	}
	return out, nil
}

// ObjectExists reports whether obj resolves to a valid object.
func (r *Repository) ObjectExists(ctx context.Context, obj string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, err := r.git(ctx, "", "cat-file", "-e", obj)
	return err == nil
}
