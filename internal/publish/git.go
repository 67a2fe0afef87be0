package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 2 * time.Minute

// Config holds the git publisher settings.
type Config struct {
	// Dir is the working tree that holds the rendered site.
	Dir    string
	Remote string
	// Branch is pushed to Remote. Push is skipped when Remote is empty.
	Branch  string
	Timeout time.Duration
}

// Git commits the rendered files and pushes them.
type Git struct {
	cfg Config
	now func() time.Time
}

// NewGit creates a git publisher.
func NewGit(cfg Config) *Git {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Git{cfg: cfg, now: time.Now}
}

// Publish stages files (site-relative), commits them when anything changed
// and pushes. Files that do not exist are skipped. A clean index is a
// success without a commit.
func (g *Git) Publish(ctx context.Context, files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(g.cfg.Dir, f)); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		logging.Info("No rendered files to publish")
		metrics.PublishTotal.WithLabelValues("nothing_to_commit").Inc()
		return nil
	}

	if _, err := g.run(ctx, append([]string{"add", "--all", "--"}, existing...)...); err != nil {
		return g.fail(err)
	}

	changed, err := g.hasStagedChanges(ctx)
	if err != nil {
		return g.fail(err)
	}
	if !changed {
		logging.Info("No staged changes, skipping commit and push")
		metrics.PublishTotal.WithLabelValues("nothing_to_commit").Inc()
		return nil
	}

	message := "Automated update: " + g.now().Format("2006-01-02 15:04:05")
	out, err := g.run(ctx, "commit", "-m", message)
	if err != nil {
		return g.fail(err)
	}
	logging.Info("Committed: %s", message)
	logging.Debug("git commit output:\n%s", out)

	if g.cfg.Remote == "" {
		logging.Debug("No remote configured, skipping push")
	} else {
		out, err := g.run(ctx, "push", g.cfg.Remote, g.cfg.Branch)
		if err != nil {
			return g.fail(err)
		}
		logging.Info("Pushed to %s %s", g.cfg.Remote, g.cfg.Branch)
		logging.Debug("git push output:\n%s", out)
	}

	metrics.PublishTotal.WithLabelValues("success").Inc()
	return nil
}

func (g *Git) fail(err error) error {
	metrics.PublishTotal.WithLabelValues("error").Inc()
	logging.Error("Publish failed: %v", err)
	return err
}

// hasStagedChanges runs git diff --staged --quiet, which exits 1 when the
// index differs from HEAD.
func (g *Git) hasStagedChanges(ctx context.Context) (bool, error) {
	_, err := g.run(ctx, "diff", "--staged", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// IsRepository reports whether Dir is inside a git work tree.
func (g *Git) IsRepository(ctx context.Context) bool {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.cfg.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.String(), fmt.Errorf("git %s: %w", args[0], err)
		}
		return stdout.String(), fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return stdout.String(), nil
}

// CheckGit verifies that git is installed and returns its version line.
func CheckGit(ctx context.Context) (string, error) {
	path, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git not found in PATH")
	}
	logging.Debug("  Git path: %s", path)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "git", "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git version: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
