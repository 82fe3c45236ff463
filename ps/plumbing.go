package ps

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/ZeroTrustDB/core"
)

// The ledger tree is always one level deep: a root tree holding the records
// directory, which holds one blob per record. Objects are written straight to
// the storer; no worktree is ever checked out.

type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func (l *Ledger) writeObject(o encoder) (plumbing.Hash, error) {
	obj := l.repo.Storer.NewEncodedObject()
	if err := o.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode object: %w", err)
	}
	return l.repo.Storer.SetEncodedObject(obj)
}

func (l *Ledger) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := l.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open record blob: %w", err)
	}
	_, err = w.Write(data)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write record blob: %w", err)
	}

	return l.repo.Storer.SetEncodedObject(obj)
}

// headCommit returns the commit HEAD points at, or nil for an empty ledger.
func (l *Ledger) headCommit() (*object.Commit, error) {
	ref, err := l.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ledger head: %w", err)
	}
	return l.repo.CommitObject(ref.Hash())
}

// records returns the entries of the records directory at head.
func (l *Ledger) records(head *object.Commit) ([]object.TreeEntry, error) {
	if head == nil {
		return nil, nil
	}

	root, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger tree: %w", err)
	}
	entry, err := root.FindEntry(recordDir)
	if errors.Is(err, object.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dir, err := object.GetTree(l.repo.Storer, entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s tree: %w", recordDir, err)
	}
	return append([]object.TreeEntry(nil), dir.Entries...), nil
}

// recordTree writes the root tree of head with blob added as record seq.
func (l *Ledger) recordTree(head *object.Commit, seq int, blob plumbing.Hash) (plumbing.Hash, error) {
	entries, err := l.records(head)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entries = append(entries, object.TreeEntry{Name: recordName(seq), Mode: filemode.Regular, Hash: blob})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	dir, err := l.writeObject(&object.Tree{Entries: entries})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return l.writeObject(&object.Tree{Entries: []object.TreeEntry{
		{Name: recordDir, Mode: filemode.Dir, Hash: dir},
	}})
}

// commitTree commits tree on top of head and moves the branch HEAD names.
func (l *Ledger) commitTree(head *object.Commit, tree plumbing.Hash, author core.Identity, message string) (Transaction, error) {
	sig := object.Signature{Name: author.Name, Email: author.Email, When: time.Now()}
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  tree,
	}
	if head != nil {
		commit.ParentHashes = []plumbing.Hash{head.Hash}
	}

	hash, err := l.writeObject(commit)
	if err != nil {
		return Transaction{}, err
	}

	branch := plumbing.Master
	if ref, err := l.repo.Storer.Reference(plumbing.HEAD); err == nil && ref.Type() == plumbing.SymbolicReference {
		branch = ref.Target()
	}
	if err := l.repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to move %s: %w", branch, err)
	}

	return Transaction{Id: hash.String(), When: sig.When, Author: author.String()}, nil
}

// readRecord returns the content of record seq as of commit.
func (l *Ledger) readRecord(commit *object.Commit, seq int) ([]byte, error) {
	file, err := commit.File(recordPath(seq))
	if err != nil {
		return nil, fmt.Errorf("failed to read record %d at %s: %w", seq, commit.Hash, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", file.Hash, err)
	}
	return []byte(content), nil
}
