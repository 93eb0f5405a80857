package schemasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
)

// gitTimeout bounds a single clone or pull.
const gitTimeout = 2 * time.Minute

// CommitInfo describes the commit a schema was loaded from.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Branch    string    `json:"branch"`
}

// GitSource keeps a local working copy of a repository holding schema files
// and loads the configured schema from it. The HEAD commit SHA is the
// schema revision.
type GitSource struct {
	config config.GitConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates the repository settings.
func NewGitSource(cfg config.GitConfig) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = config.DefaultGitBranch
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultGitPath
	}
	if cfg.CloneDir == "" {
		cfg.CloneDir = config.DefaultGitCloneDir
	}

	return &GitSource{
		config: cfg,
		logger: slog.Default().With("component", "schemasource.git"),
	}, nil
}

// Name returns "git".
func (g *GitSource) Name() string { return SourceGit }

// SchemaPath returns the schema file's path inside the working copy.
func (g *GitSource) SchemaPath() string {
	return filepath.Join(g.config.CloneDir, g.config.Path)
}

// Load syncs the working copy, then reads the schema file from it.
func (g *GitSource) Load(ctx context.Context) (*fieldspec.Schema, string, error) {
	if _, err := g.Sync(ctx); err != nil {
		return nil, "", err
	}

	head, err := g.Head()
	if err != nil {
		return nil, "", err
	}

	schema, err := fieldspec.Load(g.SchemaPath())
	if err != nil {
		return nil, "", err
	}
	return schema, head.SHA, nil
}

// Sync clones the repository on first use (or opens an existing clone) and
// pulls afterwards. It reports whether HEAD moved.
func (g *GitSource) Sync(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		if err := g.open(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	return g.pull(ctx)
}

func (g *GitSource) open(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.config.CloneDir, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.config.CloneDir)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		g.repo = repo
		g.logger.Info("opened existing schema repository", "path", g.config.CloneDir)
		// An existing clone may be stale.
		_, err = g.pull(ctx)
		return err
	}

	if err := os.MkdirAll(g.config.CloneDir, 0755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, g.config.CloneDir, false, &gogit.CloneOptions{
		URL:           g.config.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	g.repo = repo
	g.logger.Info("cloned schema repository",
		"repository", g.config.Repository,
		"branch", g.config.Branch,
		"path", g.config.CloneDir,
	)
	return nil
}

func (g *GitSource) pull(ctx context.Context) (bool, error) {
	before, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get HEAD: %w", err)
	}

	worktree, err := g.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.config.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := g.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	changed := before.Hash() != after.Hash()
	if changed {
		g.logger.Info("schema repository updated",
			"from", before.Hash().String(),
			"to", after.Hash().String(),
		)
	}
	return changed, nil
}

// Head returns the checked-out commit.
func (g *GitSource) Head() (*CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.repo == nil {
		return nil, fmt.Errorf("repository not initialized, call Sync first")
	}

	ref, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	return &CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
		Branch:    g.config.Branch,
	}, nil
}

// Poll pulls every interval and reloads the registry when HEAD moves. It
// blocks until ctx is cancelled.
func (g *GitSource) Poll(ctx context.Context, interval time.Duration, registry *Registry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := g.Sync(ctx)
			if err != nil {
				g.logger.Error("schema repository pull failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			if err := registry.Reload(ctx); err != nil {
				g.logger.Warn("keeping previous schema", "error", err)
			}
		}
	}
}

// auth returns HTTP basic auth when a token is configured. Token hosts
// accept any non-empty username.
func (g *GitSource) auth() transport.AuthMethod {
	if g.config.Token == "" {
		return nil
	}
	username := g.config.Username
	if username == "" {
		username = "git"
	}
	return &http.BasicAuth{Username: username, Password: g.config.Token}
}
