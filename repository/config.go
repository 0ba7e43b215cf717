package repository

import (
	"fmt"
	"path/filepath"

	"github.com/gitfsio/gitfs/auth"
)

// Signature is a commit author or committer identity.
type Signature struct {
	Name  string
	Email string
}

// Config describes the single repository a gitfs mount tracks.
type Config struct {
	// Remote is the git URL to clone and track.
	Remote string

	// Branch is the tracked branch. Empty means the remote's default branch.
	Branch string

	// Root is the absolute path of the local working-tree clone.
	Root string

	// Credentials authenticate fetch/push; may be nil for unauthenticated
	// (e.g. local file://) remotes.
	Credentials *auth.Credentials

	Author    Signature
	Committer Signature
}

// ValidateAndApplyDefaults checks required fields and fills in defaults.
func (c *Config) ValidateAndApplyDefaults() error {
	if c.Remote == "" {
		return fmt.Errorf("remote url cannot be empty")
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("repository root %q must be an absolute path", c.Root)
	}
	if c.Committer.Name == "" {
		c.Committer.Name = "gitfs"
	}
	if c.Committer.Email == "" {
		c.Committer.Email = "gitfs@localhost"
	}
	if c.Author == (Signature{}) {
		c.Author = c.Committer
	}
	return nil
}
