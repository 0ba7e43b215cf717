package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gitfsio/gitfs/internal/utils"
)

// Conflict describes one conflicted path produced by MergeNoCommit.
//
// libgit2-style APIs name the two sides of a merge conflict "ours" and
// "theirs", in the order of current HEAD vs. the commit passed to merge().
// That labeling flips ambiguously across the accept-mine replay loop,
// since which commit counts as "local" changes with each iteration.
// Conflict instead names the two sides for what they mean to the replay
// itself: LocalExists is whether the replayed local commit (the one being
// merged in) has the path, RemoteExists is whether the accumulating merge
// branch (pre-merge HEAD) has it. The accept-mine rule — every conflict
// resolved in favor of local content — is written against these names.
type Conflict struct {
	Path         string
	LocalExists  bool
	RemoteExists bool
}

// MergeNoCommit merges commitID into the current HEAD without creating a
// commit, leaving the result staged in the index. A clean merge (no
// conflicts) returns a nil conflict slice and nil error; conflicts are
// returned for the caller (the merge strategy) to resolve before
// committing.
func (r *Repository) MergeNoCommit(ctx context.Context, commitID string) ([]Conflict, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	headHash, err := r.git(ctx, "", "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}
	headHash = strings.TrimSpace(headHash)

	_, mergeErr := r.git(ctx, "", "merge", "--no-commit", "--no-ff", commitID)
	if mergeErr == nil {
		return nil, nil
	}

	out, diffErr := r.git(ctx, "", "diff", "--name-only", "--diff-filter=U")
	if diffErr != nil || strings.TrimSpace(out) == "" {
		return nil, mergeErr
	}

	var conflicts []Conflict
	for _, path := range strings.Split(strings.TrimSpace(out), "\n") {
		if path == "" {
			continue
		}
		_, localErr := r.git(ctx, "", "cat-file", "-e", commitID+":"+path)
		_, remoteErr := r.git(ctx, "", "cat-file", "-e", headHash+":"+path)
		conflicts = append(conflicts, Conflict{
			Path:         path,
			LocalExists:  localErr == nil,
			RemoteExists: remoteErr == nil,
		})
	}
	return conflicts, nil
}

// ResolveConflictKeepLocal resolves one conflict by keeping the replayed
// local commit's content (or removing the path if the local side deleted
// it), matching the accept-mine policy: local always wins. Caller must
// already hold no lock on r; this method takes its own.
func (r *Repository) ResolveConflictKeepLocal(ctx context.Context, c Conflict, localCommitID string) error {
	if !c.LocalExists {
		return r.IndexRemove(ctx, c.Path, 0)
	}

	blob, err := r.ShowBlob(ctx, localCommitID, c.Path)
	if err != nil {
		return err
	}

	r.lock.Lock()
	full := r.FullPath(c.Path)
	mkdirErr := os.MkdirAll(filepath.Dir(full), 0755)
	var writeErr error
	if mkdirErr == nil {
		writeErr = os.WriteFile(full, blob, 0644)
	}
	r.lock.Unlock()
	if mkdirErr != nil {
		return mkdirErr
	}
	if writeErr != nil {
		return writeErr
	}
	return r.IndexAdd(ctx, c.Path)
}

// WriteTree writes the current index as a tree object and returns its hash.
func (r *Repository) WriteTree(ctx context.Context) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	out, err := r.git(ctx, "", "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitTree creates a commit object for tree with the given parents and
// returns its hash. It does not move any ref.
func (r *Repository) CommitTree(ctx context.Context, tree string, parents []string, message string, author, committer Signature) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	args = append(args, "-m", message)

	envs := []string{
		"GIT_AUTHOR_NAME=" + author.Name, "GIT_AUTHOR_EMAIL=" + author.Email,
		"GIT_COMMITTER_NAME=" + committer.Name, "GIT_COMMITTER_EMAIL=" + committer.Email,
	}
	out, err := utils.RunCommand(ctx, r.log, envs, r.dir, r.cmd, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StateCleanup removes any in-progress merge state left in .git
// (MERGE_HEAD, MERGE_MSG, MERGE_MODE), called between each replayed commit
// so the next MergeNoCommit starts from a clean slate.
func (r *Repository) StateCleanup(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, f := range []string{"MERGE_HEAD", "MERGE_MSG", "MERGE_MODE"} {
		_ = os.Remove(filepath.Join(r.dir, ".git", f))
	}
	return nil
}
