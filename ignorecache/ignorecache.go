// Package ignorecache answers "is path X ignored?" for the current view's
// write gate. It unions .gitignore, .gitmodules
// (submodule paths are hard-ignored — gitfs never stages into a submodule
// checkout), an optional user exclude file, and a literal hard-ignore list.
package ignorecache

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gitfsio/gitfs/internal/lock"
	ignore "github.com/sabhiram/go-gitignore"
)

var submodulePathRgx = regexp.MustCompile(`^\s*path\s*=\s*(.+?)\s*$`)

// Cache unions every ignore source for one repository working tree.
type Cache struct {
	mu lock.RWMutex

	gitignore *ignore.GitIgnore
	exclude   *ignore.GitIgnore
	hard      *ignore.GitIgnore
	submodule map[string]struct{}
}

// New builds an empty cache; call Load to populate it from disk.
func New() *Cache {
	return &Cache{}
}

// Load (re)reads .gitignore and .gitmodules from repoRoot, the optional
// excludeFile, and compiles hardIgnore as literal gitignore-syntax patterns.
// A missing .gitignore/.gitmodules/excludeFile is not an error.
func (c *Cache) Load(repoRoot, excludeFile string, hardIgnore []string) error {
	gi, err := compileIfExists(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		return err
	}

	var ex *ignore.GitIgnore
	if excludeFile != "" {
		ex, err = compileIfExists(excludeFile)
		if err != nil {
			return err
		}
	}

	var hard *ignore.GitIgnore
	if len(hardIgnore) > 0 {
		hard = ignore.CompileIgnoreLines(hardIgnore...)
	}

	submodules, err := parseSubmodulePaths(filepath.Join(repoRoot, ".gitmodules"))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gitignore = gi
	c.exclude = ex
	c.hard = hard
	c.submodule = submodules
	return nil
}

// IsIgnored reports whether rel (relative to the repository root, no
// leading slash) matches any ignore source.
func (c *Cache) IsIgnored(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")

	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.submodule[rel]; ok {
		return true
	}
	if c.gitignore != nil && c.gitignore.MatchesPath(rel) {
		return true
	}
	if c.exclude != nil && c.exclude.MatchesPath(rel) {
		return true
	}
	if c.hard != nil && c.hard.MatchesPath(rel) {
		return true
	}
	return false
}

// IsAlwaysHidden reports whether name must never appear in a directory
// listing, regardless of ignore patterns: ".git" and ".keep".
func IsAlwaysHidden(name string) bool {
	return name == ".git" || name == ".keep"
}

func compileIfExists(path string) (*ignore.GitIgnore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return ignore.CompileIgnoreFile(path)
}

func parseSubmodulePaths(gitmodulesPath string) (map[string]struct{}, error) {
	f, err := os.Open(gitmodulesPath)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	paths := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := submodulePathRgx.FindStringSubmatch(scanner.Text()); m != nil {
			paths[m[1]] = struct{}{}
		}
	}
	return paths, scanner.Err()
}
