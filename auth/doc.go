// Package auth resolves the environment variables git needs to fetch and
// push against the tracked remote: HTTPS username/password, an SSH key, or
// a short-lived GitHub App installation token (minted with go-jose).
package auth
