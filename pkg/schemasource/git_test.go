package schemasource

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

// commitSchema writes monster.yaml into the repository and commits it.
func commitSchema(t *testing.T, repo *gogit.Repository, dir, content, message string) string {
	t.Helper()

	writeSchema(t, filepath.Join(dir, "monster.yaml"), content)

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("monster.yaml"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func newUpstream(t *testing.T) (*gogit.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	return repo, dir
}

func TestGitSource_LoadAndPull(t *testing.T) {
	upstream, upstreamDir := newUpstream(t)
	firstSHA := commitSchema(t, upstream, upstreamDir, schemaYAML("1.0"), "initial schema")

	gs, err := NewGitSource(config.GitConfig{
		Repository: upstreamDir,
		Branch:     "master", // go-git init creates "master"
		Path:       "monster.yaml",
		CloneDir:   filepath.Join(t.TempDir(), "clone"),
	})
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	reg := NewRegistry(gs)
	ctx := context.Background()
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reg.Current().Revision != firstSHA {
		t.Errorf("Revision = %s, want %s", reg.Current().Revision, firstSHA)
	}
	if reg.Current().Source != SourceGit {
		t.Errorf("Source = %s, want git", reg.Current().Source)
	}

	changed, err := gs.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if changed {
		t.Error("Sync() reported a change with no new commits")
	}

	secondSHA := commitSchema(t, upstream, upstreamDir, schemaYAML("1.1"), "bump schema")
	if err := reg.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if reg.Version() != "1.1" || reg.Current().Revision != secondSHA {
		t.Errorf("after pull: version %s rev %s, want 1.1 %s", reg.Version(), reg.Current().Revision, secondSHA)
	}

	head, err := gs.Head()
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head.Message != "bump schema" || head.Branch != "master" {
		t.Errorf("Head() = %+v", head)
	}
}

func TestGitSource_ReopensExistingClone(t *testing.T) {
	upstream, upstreamDir := newUpstream(t)
	sha := commitSchema(t, upstream, upstreamDir, schemaYAML("1.0"), "initial schema")

	cfg := config.GitConfig{
		Repository: upstreamDir,
		Branch:     "master",
		CloneDir:   filepath.Join(t.TempDir(), "clone"),
	}

	first, _ := NewGitSource(cfg)
	if _, err := first.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	second, _ := NewGitSource(cfg)
	_, rev, err := second.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on existing clone error = %v", err)
	}
	if rev != sha {
		t.Errorf("revision = %s, want %s", rev, sha)
	}
}

func TestGitSource_Errors(t *testing.T) {
	if _, err := NewGitSource(config.GitConfig{}); err == nil {
		t.Error("NewGitSource() without repository should fail")
	}

	gs, err := NewGitSource(config.GitConfig{
		Repository: filepath.Join(t.TempDir(), "missing"),
		CloneDir:   filepath.Join(t.TempDir(), "clone"),
	})
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	if _, err := gs.Head(); err == nil {
		t.Error("Head() before Sync should fail")
	}
	if _, _, err := gs.Load(context.Background()); err == nil {
		t.Error("Load() from a missing repository should fail")
	}
}

func TestGitSource_Auth(t *testing.T) {
	gs, _ := NewGitSource(config.GitConfig{Repository: "https://example.com/s.git"})
	if gs.auth() != nil {
		t.Error("auth() without token should be nil")
	}

	gs, _ = NewGitSource(config.GitConfig{Repository: "https://example.com/s.git", Token: "t0k"})
	if gs.auth() == nil || gs.auth().Name() != "http-basic-auth" {
		t.Errorf("auth() = %v, want basic auth", gs.auth())
	}
}
