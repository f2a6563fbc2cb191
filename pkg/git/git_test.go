package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSig = &object.Signature{Name: "qa", Email: "qa@example.com", When: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

// memRepo creates an in-memory repository with one committed scenario file.
func memRepo(t *testing.T) (*gogit.Repository, plumbing.Hash) {
	t.Helper()
	fs := memfs.New()
	repo, err := gogit.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fs, "scenarios/login.yaml", []byte("id: A\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("scenarios/login.yaml")
	require.NoError(t, err)
	hash, err := wt.Commit("add scenario", &gogit.CommitOptions{Author: testSig})
	require.NoError(t, err)
	return repo, hash
}

func TestGoGitBackend_Clean(t *testing.T) {
	repo, hash := memRepo(t)
	info, err := describe(&goGitBackend{repo: repo, root: "/"})
	require.NoError(t, err)

	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.False(t, info.Dirty)
	assert.Len(t, info.Short(), 8)
}

func TestGoGitBackend_DirtyAndUntracked(t *testing.T) {
	repo, _ := memRepo(t)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	b := &goGitBackend{repo: repo, root: "/"}

	require.NoError(t, util.WriteFile(wt.Filesystem, "scenarios/new.yaml", []byte("id: B\n"), 0o644))
	dirty, err := b.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty, "untracked files are not dirty")

	require.NoError(t, util.WriteFile(wt.Filesystem, "scenarios/login.yaml", []byte("id: changed\n"), 0o644))
	dirty, err = b.IsDirty()
	require.NoError(t, err)
	assert.True(t, dirty)
}

func TestGoGitBackend_DetachedHead(t *testing.T) {
	repo, hash := memRepo(t)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&gogit.CheckoutOptions{Hash: hash}))

	info, err := describe(&goGitBackend{repo: repo, root: "/"})
	require.NoError(t, err)
	assert.Empty(t, info.Branch)
	assert.Equal(t, hash.String(), info.Commit)
}

func TestGoGitBackend_NoCommits(t *testing.T) {
	repo, err := gogit.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	info, err := describe(&goGitBackend{repo: repo, root: "/"})
	require.NoError(t, err)
	assert.Empty(t, info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.Empty(t, info.Short())
}

func TestDescribe_OnDisk(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	sub := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.yaml"), []byte("id: A\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("scenarios/a.yaml")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &gogit.CommitOptions{Author: testSig})
	require.NoError(t, err)

	info, err := Describe(sub)
	require.NoError(t, err)
	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, root, info.Root)
	assert.Equal(t, hash.String(), info.Commit)
	assert.False(t, info.Dirty)
}

func TestDescribe_NotARepo(t *testing.T) {
	_, err := Describe(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestParsePorcelain(t *testing.T) {
	tests := []struct {
		name   string
		out    string
		head   string
		branch string
		dirty  bool
	}{
		{name: "clean branch", out: "# branch.oid 1a2b3c\n# branch.head main\n", head: "1a2b3c", branch: "main"},
		{name: "unborn", out: "# branch.oid (initial)\n# branch.head master\n? new.yaml\n", branch: "master"},
		{name: "detached", out: "# branch.oid 1a2b3c\n# branch.head (detached)\n", head: "1a2b3c"},
		{name: "modified", out: "# branch.oid 1a2b3c\n# branch.head main\n1 .M N... 100644 100644 100644 aa bb scenarios/a.yaml\n",
			head: "1a2b3c", branch: "main", dirty: true},
		{name: "renamed", out: "# branch.head main\n2 R. N... 100644 100644 100644 aa bb R100 b.yaml\ta.yaml\n", branch: "main", dirty: true},
		{name: "untracked and ignored only", out: "# branch.head main\n? x.yaml\n! tmp/\n", branch: "main"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			head, branch, dirty := parsePorcelain(tc.out)
			assert.Equal(t, tc.head, head)
			assert.Equal(t, tc.branch, branch)
			assert.Equal(t, tc.dirty, dirty)
		})
	}
}

func TestExternalBackend(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: A\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.yaml")
	require.NoError(t, err)
	hash, err := wt.Commit("init", &gogit.CommitOptions{Author: testSig})
	require.NoError(t, err)

	b, err := newExternalBackend(dir)
	require.NoError(t, err)
	info, err := describe(b)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.False(t, info.Dirty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: B\n"), 0o600))
	b, err = newExternalBackend(dir)
	require.NoError(t, err)
	assert.True(t, b.dirty)

	_, err = newExternalBackend(t.TempDir())
	require.Error(t, err)
}
