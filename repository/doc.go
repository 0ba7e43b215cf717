// Package repository wraps the git command-line tool behind the contract
// gitfs's views and workers need: clone, fetch, push, ahead/behind, commit,
// checkout, index add/remove, and commit walking.
//
// Repository manages a single full (non-bare) clone of one tracked branch —
// there is no worktree-link concept, because a gitfs mount exposes exactly
// one writable working tree.
//
// # Logging
//
// Repository takes an *slog.Logger and logs git invocations at a custom
// "trace" level (slog.Level(-8)).
//
// Example:
//
//	repo, err := repository.New(repository.Config{
//		Remote: "https://github.com/example/docs.git",
//		Branch: "main",
//		Root:   "/var/run/gitfs/docs",
//	}, "", logger)
//	if err != nil {
//		panic(err)
//	}
//	if err := repo.Clone(ctx); err != nil {
//		panic(err)
//	}
package repository
