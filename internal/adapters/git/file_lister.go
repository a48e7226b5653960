// Package git lists project files for @-mentions, preferring git's view of
// the tree so ignored files stay out of the menu.
package git

import (
	"io/fs"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/renato0307/conduit/internal/logging"
)

// MaxFiles caps how many paths a lister keeps
const MaxFiles = 5000

// skippedDirs are never walked when the project is not a git repository
var skippedDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	"dist":         true,
	"node_modules": true,
	"vendor":       true,
}

// FileLister implements ports.FileLister for one project directory. The
// listing is computed once on first use.
type FileLister struct {
	dir string

	once  sync.Once
	files []string
}

// NewFileLister creates a lister rooted at dir
func NewFileLister(dir string) *FileLister {
	return &FileLister{dir: dir}
}

// Files returns project-relative paths, sorted
func (l *FileLister) Files() []string {
	l.once.Do(func() {
		l.files = l.list()
		logging.Logger.Debug("Project files listed", "dir", l.dir, "count", len(l.files))
	})
	return l.files
}

func (l *FileLister) list() []string {
	if l.dir == "" {
		return nil
	}
	if ok, _ := isGitRepo(l.dir); ok {
		if files, err := lsFiles(l.dir); err == nil {
			return files
		}
	}
	return walk(l.dir)
}

// isGitRepo checks if the given path is within a git repository.
// Returns true and the repository root path if it is.
func isGitRepo(path string) (bool, string) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = path

	output, err := cmd.Output()
	if err != nil {
		logging.Logger.Debug("Not a git repository", "path", path)
		return false, ""
	}
	return true, strings.TrimSpace(string(output))
}

// lsFiles returns tracked and untracked, non-ignored files
func lsFiles(dir string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		logging.Logger.Warn("git ls-files failed", "dir", dir, "error", err)
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		files = append(files, filepath.ToSlash(line))
		if len(files) == MaxFiles {
			break
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

func walk(dir string) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		if len(files) == MaxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		logging.Logger.Warn("Failed to walk project", "dir", dir, "error", err)
	}
	slices.Sort(files)
	return files
}
