package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// externalBackend reads repository state from the git CLI.
// all state comes from a single "status --porcelain=v2 --branch" call made when the backend is opened.
type externalBackend struct {
	root   string
	head   string
	branch string
	dirty  bool
}

// newExternalBackend finds the repository containing path and snapshots its state.
func newExternalBackend(path string) (*externalBackend, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	top, err := gitCmd(absPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", absPath, err)
	}
	// macOS temp dirs live behind /var -> /private/var
	root, err := filepath.EvalSymlinks(strings.TrimSpace(top))
	if err != nil {
		return nil, fmt.Errorf("eval symlinks: %w", err)
	}

	out, err := gitCmd(root, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	b := &externalBackend{root: root}
	b.head, b.branch, b.dirty = parsePorcelain(out)
	return b, nil
}

var _ backend = (*externalBackend)(nil)

func (e *externalBackend) Root() string                   { return e.root }
func (e *externalBackend) headHash() (string, error)      { return e.head, nil }
func (e *externalBackend) CurrentBranch() (string, error) { return e.branch, nil }
func (e *externalBackend) IsDirty() (bool, error)         { return e.dirty, nil }

// parsePorcelain extracts HEAD, branch and dirtiness from porcelain v2 output.
// an unborn HEAD gives an empty hash, a detached HEAD an empty branch, untracked and ignored entries don't count.
func parsePorcelain(out string) (head, branch string, dirty bool) {
	for line := range strings.SplitSeq(out, "\n") {
		switch {
		case strings.HasPrefix(line, "# branch.oid "):
			if v := strings.TrimPrefix(line, "# branch.oid "); v != "(initial)" {
				head = v
			}
		case strings.HasPrefix(line, "# branch.head "):
			if v := strings.TrimPrefix(line, "# branch.head "); v != "(detached)" {
				branch = v
			}
		case strings.HasPrefix(line, "1 "), strings.HasPrefix(line, "2 "), strings.HasPrefix(line, "u "):
			dirty = true
		}
	}
	return head, branch, dirty
}

// gitCmd runs git in dir. stderr is folded into the error.
func gitCmd(dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(context.Background(), "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}
