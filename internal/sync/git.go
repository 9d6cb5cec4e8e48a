// Git plumbing for the sync orchestrator. The engines never touch git; the
// Manager drives these operations around export and import.
package sync

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNothingToCommit is returned by Commit when the working tree has no
// staged changes. Callers treat it as success.
var ErrNothingToCommit = errors.New("nothing to commit")

// GitOps abstracts the git operations the Manager needs, so tests can swap
// in a fake and the orchestrator logic stays independent of the binary.
type GitOps interface {
	Init(dir string) error
	AddRemote(dir, name, url string) error
	RemoteURL(dir string) (string, error)
	StatusPorcelain(dir string) (string, error)
	Add(dir string, paths ...string) error
	Commit(dir, message string) error
	Pull(dir string) error
	Push(dir string) error
}

// ExecGit runs the system git binary. All commands run with the sync
// directory as their working directory.
type ExecGit struct{}

func (ExecGit) run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (g ExecGit) Init(dir string) error {
	_, err := g.run(dir, "init")
	return err
}

func (g ExecGit) AddRemote(dir, name, url string) error {
	_, err := g.run(dir, "remote", "add", name, url)
	return err
}

// RemoteURL returns the origin URL, or empty when no origin is configured.
func (g ExecGit) RemoteURL(dir string) (string, error) {
	out, err := g.run(dir, "remote", "get-url", "origin")
	if err != nil {
		if strings.Contains(err.Error(), "No such remote") {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g ExecGit) StatusPorcelain(dir string) (string, error) {
	return g.run(dir, "status", "--porcelain")
}

func (g ExecGit) Add(dir string, paths ...string) error {
	_, err := g.run(dir, append([]string{"add", "--"}, paths...)...)
	return err
}

func (g ExecGit) Commit(dir, message string) error {
	_, err := g.run(dir, "commit", "-m", message)
	if err != nil && strings.Contains(err.Error(), "nothing to commit") {
		return ErrNothingToCommit
	}
	return err
}

func (g ExecGit) Pull(dir string) error {
	_, err := g.run(dir, "pull", "--ff-only")
	return err
}

// Push sets the upstream on first use so a fresh sync repo pushes cleanly.
func (g ExecGit) Push(dir string) error {
	_, err := g.run(dir, "push", "-u", "origin", "HEAD")
	return err
}
