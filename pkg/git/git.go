// Package git reports the version-control state of the scenarios directory, recorded in run reports.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info is the provenance of a run.
type Info struct {
	Root   string `json:"root"`
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"` // empty for detached HEAD
	Dirty  bool   `json:"dirty"`
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 8 {
		return i.Commit[:8]
	}
	return i.Commit
}

// backend is the minimal repository access needed for provenance.
type backend interface {
	Root() string
	headHash() (string, error)
	CurrentBranch() (string, error)
	IsDirty() (bool, error)
}

// Describe returns provenance for the repository containing path.
// go-git is tried first; the git CLI is used when go-git can't open the repository (e.g. unsupported extensions).
func Describe(path string) (Info, error) {
	b, err := newGoGitBackend(path)
	if err != nil {
		ext, extErr := newExternalBackend(path)
		if extErr != nil {
			return Info{}, fmt.Errorf("open repository: %w", errors.Join(err, extErr))
		}
		return describe(ext)
	}
	return describe(b)
}

func describe(b backend) (Info, error) {
	info := Info{Root: b.Root()}

	hash, err := b.headHash()
	if err != nil {
		return info, err
	}
	info.Commit = hash

	if info.Branch, err = b.CurrentBranch(); err != nil {
		return info, err
	}
	if info.Dirty, err = b.IsDirty(); err != nil {
		return info, err
	}
	return info, nil
}

// goGitBackend reads repository state with go-git.
type goGitBackend struct {
	repo *gogit.Repository
	root string
}

// newGoGitBackend opens the repository containing path, walking up to find .git.
func newGoGitBackend(path string) (*goGitBackend, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", absPath, err)
	}
	root := absPath
	if wt, wtErr := repo.Worktree(); wtErr == nil {
		root = wt.Filesystem.Root()
	}
	if resolved, evalErr := filepath.EvalSymlinks(root); evalErr == nil {
		root = resolved
	}
	return &goGitBackend{repo: repo, root: root}, nil
}

var _ backend = (*goGitBackend)(nil)

// Root returns the worktree root.
func (g *goGitBackend) Root() string { return g.root }

// headHash returns the HEAD commit hash, empty for a repository without commits.
func (g *goGitBackend) headHash() (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// CurrentBranch returns the current branch name, empty for detached HEAD.
// for a repository without commits it returns the branch HEAD points to.
func (g *goGitBackend) CurrentBranch() (string, error) {
	ref, err := g.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	return "", nil
}

// IsDirty reports uncommitted changes to tracked files. untracked files don't count.
func (g *goGitBackend) IsDirty() (bool, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("get worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("get status: %w", err)
	}
	for _, fs := range st {
		if fs.Staging == gogit.Untracked && fs.Worktree == gogit.Untracked {
			continue
		}
		if fs.Staging != gogit.Unmodified || fs.Worktree != gogit.Unmodified {
			return true, nil
		}
	}
	return false, nil
}
