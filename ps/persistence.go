package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var ErrNotInitialized = errors.New("ledger not initialized")

// Ledger is an append-only sequence of records. Every record is written as
// one blob in one commit of a git repository, so the history of the
// repository is the history of the ledger.
type Ledger struct {
	repo  *git.Repository
	mu    sync.RWMutex
	count int
}

// IsInitialized returns true if the ledger has a valid repository
func (l *Ledger) IsInitialized() bool {
	return l != nil && l.repo != nil
}

func (l *Ledger) ensureInitialized() error {
	if !l.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryLedger returns a ledger whose repository lives entirely in memory.
func NewMemoryLedger() (*Ledger, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Ledger{repo: repo}, nil
}

// NewFileLedger opens the ledger repository under baseDir, creating it when
// it does not exist yet. Existing records are kept and new ones appended.
func NewFileLedger(baseDir string) (*Ledger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	ledger := &Ledger{repo: repo}
	commits, err := ledger.history()
	if err != nil {
		return nil, err
	}
	ledger.count = len(commits)
	return ledger, nil
}
