// Package merge implements the "accept mine" conflict-resolution strategy:
// every conflict between a local and remote history resolves in favor of
// the local side, with remote commits replayed underneath.
package merge

import (
	"context"
	"fmt"

	"github.com/gitfsio/gitfs/repository"
)

// Strategy merges remote into local, leaving local fast-forwardable to
// upstream with every conflict resolved in favor of local content.
type Strategy interface {
	Merge(ctx context.Context, repo *repository.Repository, localBranch, remoteBranch, upstream string) error
}

// AcceptMine rebuilds the local branch by replaying remote commits, then
// local commits on top, with every conflict kept local.
type AcceptMine struct {
	Author, Committer repository.Signature
}

const (
	mergingLocal  = "refs/heads/merging_local"
	mergingRemote = "refs/heads/merging_remote"
)

// Merge rebuilds local onto remote, replaying local's own commits on top
// with every conflict resolved in local's favor.
func (s AcceptMine) Merge(ctx context.Context, repo *repository.Repository, localBranch, remoteBranch, upstream string) error {
	localRef := "refs/heads/" + localBranch
	remoteRef := "refs/remotes/" + upstream + "/" + remoteBranch

	localTip, err := repo.Hash(ctx, localRef)
	if err != nil {
		return fmt.Errorf("merge: resolve local tip: %w", err)
	}
	remoteTip, err := repo.Hash(ctx, remoteRef)
	if err != nil {
		return fmt.Errorf("merge: resolve remote tip: %w", err)
	}

	// Step 1-2: detached working branches for the two diverged tips.
	if err := repo.CreateReference(ctx, mergingLocal, localTip, true); err != nil {
		return fmt.Errorf("merge: create %s: %w", mergingLocal, err)
	}
	if err := repo.CreateReference(ctx, mergingRemote, remoteTip, true); err != nil {
		return fmt.Errorf("merge: create %s: %w", mergingRemote, err)
	}
	if err := repo.Checkout(ctx, mergingRemote, true); err != nil {
		return fmt.Errorf("merge: checkout %s: %w", mergingRemote, err)
	}

	// Step 3: diverge set. We only need the local-only commits — remote's
	// history is already fully present in merging_remote's ancestry.
	firstCommits, err := repo.CommitsBetween(ctx, remoteTip, localTip)
	if err != nil {
		return fmt.Errorf("merge: diverge set: %w", err)
	}

	tip := remoteTip
	for _, c := range firstCommits {
		conflicts, mErr := repo.MergeNoCommit(ctx, c.ID)
		if mErr != nil {
			_ = repo.StateCleanup(ctx)
			return fmt.Errorf("merge: replay %s: %w", c.ID, mErr)
		}
		for _, conflict := range conflicts {
			if err := repo.ResolveConflictKeepLocal(ctx, conflict, c.ID); err != nil {
				_ = repo.StateCleanup(ctx)
				return fmt.Errorf("merge: resolve conflict %s: %w", conflict.Path, err)
			}
		}

		tree, err := repo.WriteTree(ctx)
		if err != nil {
			return fmt.Errorf("merge: write-tree: %w", err)
		}
		msg, err := repo.CommitMessage(ctx, c.ID)
		if err != nil {
			msg = c.ID
		}
		newCommit, err := repo.CommitTree(ctx, tree, []string{tip, c.ID}, "merging: "+msg, s.Author, s.Committer)
		if err != nil {
			return fmt.Errorf("merge: commit-tree: %w", err)
		}
		if err := repo.CreateReference(ctx, mergingRemote, newCommit, true); err != nil {
			return fmt.Errorf("merge: advance %s: %w", mergingRemote, err)
		}
		if err := repo.StateCleanup(ctx); err != nil {
			return fmt.Errorf("merge: state cleanup: %w", err)
		}
		if err := repo.Checkout(ctx, mergingRemote, true); err != nil {
			return fmt.Errorf("merge: checkout %s: %w", mergingRemote, err)
		}
		tip = newCommit
	}

	// Step 5: fast-forward local to the replayed tip.
	if err := repo.CreateReference(ctx, localRef, tip, true); err != nil {
		return fmt.Errorf("merge: advance %s: %w", localRef, err)
	}

	// Step 6: cleanup.
	if err := repo.Checkout(ctx, localRef, true); err != nil {
		return fmt.Errorf("merge: checkout %s: %w", localRef, err)
	}
	_ = repo.DeleteReference(ctx, mergingLocal)
	_ = repo.DeleteReference(ctx, mergingRemote)
	return nil
}
