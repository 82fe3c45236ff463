package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

// DefaultRemote is the remote name used when none is given.
const DefaultRemote = "origin"

type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds the credentials used to push the ledger.
type RemoteAuth struct {
	Type       AuthType `yaml:"type"`
	Token      string   `yaml:"token"`
	KeyPath    string   `yaml:"key_path"`
	Passphrase string   `yaml:"passphrase"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
}

type Remote struct {
	Name string
	URLs []string
}

func (auth *RemoteAuth) authMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case "", AuthTypeNone:
		return nil, nil

	case AuthTypeToken:
		return &http.BasicAuth{
			Username: "git",
			Password: auth.Token,
		}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate ssh key: %w", err)
			}
			keyPath = filepath.Join(home, ".ssh", "id_ed25519")
		}
		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// AddRemote registers a replica the ledger can be pushed to.
func (l *Ledger) AddRemote(name, url string) error {
	if err := l.ensureInitialized(); err != nil {
		return err
	}

	_, err := l.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

func (l *Ledger) ListRemotes() ([]Remote, error) {
	if err := l.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := l.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, len(remotes))
	for i, r := range remotes {
		cfg := r.Config()
		result[i] = Remote{
			Name: cfg.Name,
			URLs: cfg.URLs,
		}
	}
	return result, nil
}

func (l *Ledger) RemoveRemote(name string) error {
	if err := l.ensureInitialized(); err != nil {
		return err
	}

	if err := l.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to remove remote '%s': %w", name, err)
	}
	return nil
}

// Push sends every record appended so far to the named remote. The remote
// branch must be an ancestor of the local one; records are never rewritten.
func (l *Ledger) Push(remoteName string, auth *RemoteAuth) error {
	if err := l.ensureInitialized(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	head, err := l.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to resolve ledger head: %w", err)
	}

	authMethod, err := auth.authMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	branch := head.Name()
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))

	err = l.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}
