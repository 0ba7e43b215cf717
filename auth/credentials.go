package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gitfsio/gitfs/giturl"
)

const loadCredsScript = `#!/bin/sh

case "$1" in
  Username*) echo "$GITFS_USERNAME" ;;
  Password*) echo "$GITFS_PASSWORD" ;;
esac
`

// Credentials describes how to authenticate fetch/push calls against the
// tracked remote. Exactly one of the username/password pair, the SSH key
// path, or the GitHub App fields should be set; Env picks the first that
// applies to the remote's scheme.
type Credentials struct {
	Username string
	Password string

	SSHUser           string
	SSHKeyPath        string
	SSHKnownHostsPath string

	GithubAppID             string
	GithubAppInstallationID string
	GithubAppPrivateKeyPath string

	// scratchDir is where the GIT_ASKPASS helper script is written; it
	// must be writable and private to the mount (the repository's clone dir).
	scratchDir string

	cachedToken    string
	tokenExpiresAt time.Time
}

// WithScratchDir returns a copy of c that writes its askpass helper under dir.
func (c Credentials) WithScratchDir(dir string) *Credentials {
	c.scratchDir = dir
	return &c
}

// Env returns the extra environment variables git needs to authenticate
// against remote, or nil if the remote needs no credentials (e.g. a local
// file:// clone used in tests).
func (c *Credentials) Env(ctx context.Context, remote string) ([]string, error) {
	if giturl.IsSCPURL(remote) || giturl.IsSSHURL(remote) {
		return []string{c.gitSSHCommand()}, nil
	}

	if !giturl.IsHTTPSURL(remote) {
		return nil, nil
	}

	var username, password string
	switch {
	case c.Username != "" && c.Password != "":
		username, password = c.Username, c.Password
	case c.Password != "":
		username, password = "-", c.Password
	case c.GithubAppInstallationID != "":
		token, err := c.githubAppToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to get github app token: %w", err)
		}
		username, password = "-", token
	default:
		return nil, nil
	}

	script, err := c.ensureCredsLoader()
	if err != nil {
		return nil, fmt.Errorf("unable to write askpass helper: %w", err)
	}

	return []string{
		"GIT_ASKPASS=" + script,
		"GITFS_USERNAME=" + username,
		"GITFS_PASSWORD=" + password,
	}, nil
}

func (c *Credentials) ensureCredsLoader() (string, error) {
	if c.scratchDir == "" {
		return "", fmt.Errorf("credentials scratch dir not set")
	}
	path := filepath.Join(c.scratchDir, "gitfs-askpass.sh")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(loadCredsScript), 0750); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", fmt.Errorf("unable to check if askpass helper exists: %w", err)
	}
	return path, nil
}

func (c *Credentials) gitSSHCommand() string {
	keyPath := c.SSHKeyPath
	if keyPath == "" {
		keyPath = "/dev/null"
	}
	knownHosts := "-o UserKnownHostsFile=/dev/null -o StrictHostKeyChecking=no"
	if c.SSHKeyPath != "" && c.SSHKnownHostsPath != "" {
		knownHosts = "-o UserKnownHostsFile=" + c.SSHKnownHostsPath
	}
	user := ""
	if c.SSHUser != "" {
		user = " -o User=" + c.SSHUser
	}
	return fmt.Sprintf(`GIT_SSH_COMMAND=ssh -q -F none -o IdentitiesOnly=yes -o IdentityFile=%s %s%s`, keyPath, knownHosts, user)
}

func (c *Credentials) githubAppToken(ctx context.Context) (string, error) {
	if c.tokenExpiresAt.After(time.Now().UTC().Add(10 * time.Minute)) {
		return c.cachedToken, nil
	}

	token, err := GithubAppInstallationToken(ctx, c.GithubAppID, c.GithubAppInstallationID, c.GithubAppPrivateKeyPath,
		GithubAppTokenReqPermissions{Permissions: map[string]string{"contents": "write"}})
	if err != nil {
		return "", err
	}

	c.cachedToken = token.Token
	c.tokenExpiresAt = token.ExpiresAt
	return c.cachedToken, nil
}

// ParseCredentialsOption parses the "-o" credential related keys into a
// Credentials value. keys not present are left zero-valued.
func ParseCredentialsOption(opts map[string]string) *Credentials {
	home, _ := os.UserHomeDir()
	sshKey := opts["ssh_key"]
	if sshKey == "" {
		sshKey = filepath.Join(home, ".ssh", "id_rsa")
	}

	return &Credentials{
		Username:                opts["username"],
		Password:                opts["password"],
		SSHUser:                 opts["ssh_user"],
		SSHKeyPath:              sshKey,
		GithubAppID:             opts["github_app_id"],
		GithubAppInstallationID: opts["github_app_installation_id"],
		GithubAppPrivateKeyPath: opts["github_app_private_key"],
	}
}
