package auth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	githubAPIBase    = "https://api.github.com"
	githubAPIVersion = "2022-11-28"

	// jwtClockSkew backdates the JWT's issued-at claim so a clock running
	// slightly ahead of GitHub's doesn't get the token rejected as
	// "not yet valid".
	jwtClockSkew = 60 * time.Second
	// jwtLifetime is GitHub's hard cap on App JWT validity.
	jwtLifetime = 10 * time.Minute
)

// GithubAppTokenReqPermissions scopes the installation token Credentials
// requests: which repositories it covers and at what permission level.
// gitfs only ever needs "contents: write" on the one tracked repository,
// but the request body supports the full shape GitHub's API accepts.
type GithubAppTokenReqPermissions struct {
	Repositories []string          `json:"repositories"`
	Permissions  map[string]string `json:"permissions"`
}

// GithubAppToken is a short-lived installation access token, along with
// the time it stops being valid so Credentials knows when to re-mint it.
type GithubAppToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GithubAppInstallationToken signs a JWT as the GitHub App identified by
// appID using the RSA private key at privateKeyPath, then exchanges that
// JWT for an installation access token scoped by reqPerms. Credentials'
// githubAppToken is the only caller; it caches the result until it's close
// to expiring rather than minting a fresh one on every push.
func GithubAppInstallationToken(ctx context.Context,
	appID, installationID, privateKeyPath string, reqPerms GithubAppTokenReqPermissions,
) (*GithubAppToken, error) {
	privateKey, err := loadRSAPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("auth: load github app private key %q: %w", privateKeyPath, err)
	}

	appJWT, err := signAppJWT(appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("auth: sign github app jwt: %w", err)
	}

	token, err := requestInstallationToken(ctx, installationID, appJWT, reqPerms)
	if err != nil {
		return nil, fmt.Errorf("auth: request installation token for installation %s: %w", installationID, err)
	}
	return token, nil
}

// loadRSAPrivateKey reads and PEM/PKCS1-decodes the App's private key, the
// same RSA key format GitHub issues when an App is registered.
func loadRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return nil, fmt.Errorf("no RSA PRIVATE KEY PEM block found")
	}

	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// signAppJWT builds and signs the short-lived JWT GitHub's App
// authentication flow expects: issuer is the App ID, validity is bounded
// to jwtLifetime with jwtClockSkew of backdating for clock drift.
func signAppJWT(appID string, privateKey *rsa.PrivateKey) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: privateKey}, nil)
	if err != nil {
		return "", err
	}

	claims := jwt.Claims{
		Issuer:   appID,
		IssuedAt: jwt.NewNumericDate(time.Now().Add(-jwtClockSkew)),
		Expiry:   jwt.NewNumericDate(time.Now().Add(jwtLifetime)),
	}

	return jwt.Signed(signer).Claims(claims).Serialize()
}

// requestInstallationToken exchanges a signed App JWT for an installation
// access token, the one network call in the GitHub App auth flow.
func requestInstallationToken(ctx context.Context, installationID, appJWT string, reqPerms GithubAppTokenReqPermissions) (*GithubAppToken, error) {
	reqBody, err := json.Marshal(reqPerms)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", githubAPIBase, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+appJWT)
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github api responded %d: %s", resp.StatusCode, body)
	}

	var token GithubAppToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}
