package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/repository"
	"gopkg.in/yaml.v3"
)

// Store is a single-file Ledger Store. The whole ledger lives in memory and
// is rewritten to disk after every write. The file is JSON unless its
// extension is .yaml or .yml.
//
// Writes are serialized: a unit of work holds the write lock from start to
// commit, so concurrent units never interleave. The file is replaced by
// renaming a synced temp file over it, so a crash mid-write leaves the
// previous ledger intact.
type Store struct {
	mu     sync.RWMutex
	path   string
	yaml   bool
	doc    *document
	dirty  bool
	closed bool
}

// Open opens or creates the ledger file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr(err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	s := &Store{path: path, yaml: ext == ".yaml" || ext == ".yml"}
	if err := s.load(); err != nil {
		return nil, storageErr(err)
	}
	return s, nil
}

// Close stops the store from accepting further writes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Path returns the location of the ledger file.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(raw) == 0) {
		s.doc = newDocument()
		return s.flushLocked()
	}
	if err != nil {
		return err
	}
	var doc document
	if s.yaml {
		err = yaml.Unmarshal(raw, &doc)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	doc.normalize()
	s.doc = &doc
	return nil
}

func (s *Store) encode(w io.Writer) error {
	if s.yaml {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s.doc); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.doc)
}

func (s *Store) flushLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if err := s.encode(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, s.path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// commitLocked persists the document when something was written, restoring
// pre on failure so memory never runs ahead of disk.
func (s *Store) commitLocked(pre *document) error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	if s.closed {
		s.doc = pre
		return storageErr(os.ErrClosed)
	}
	s.doc.UpdatedAt = time.Now().UTC()
	if err := s.flushLocked(); err != nil {
		s.doc = pre
		return storageErr(err)
	}
	return nil
}

// withWrite runs fn against the document under the write lock and persists
// the result. An error from fn leaves the document untouched.
func (s *Store) withWrite(ctx context.Context, fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	pre := s.doc.clone()
	if err := fn(s.doc); err != nil {
		s.doc = pre
		return err
	}
	s.dirty = true
	return s.commitLocked(pre)
}

func (s *Store) withRead(fn func(*document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.doc)
}

// Do runs fn as one unit of work. Repositories obtained from the unit see
// its own uncommitted writes; if fn fails nothing it did is kept.
func (s *Store) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pre := s.doc.clone()
	s.dirty = false
	defer func() {
		if r := recover(); r != nil {
			s.doc = pre
			s.dirty = false
			panic(r)
		}
	}()
	if err := fn(&session{store: s, locked: true}); err != nil {
		s.doc = pre
		s.dirty = false
		return err
	}
	return s.commitLocked(pre)
}

// UserRepository returns a user repository that locks per call.
func (s *Store) UserRepository() (repository.UserRepository, error) {
	return &userRepository{session{store: s}}, nil
}

// AccountRepository returns an account repository that locks per call.
func (s *Store) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{session{store: s}}, nil
}

// MembershipRepository returns a membership repository that locks per call.
func (s *Store) MembershipRepository() (repository.MembershipRepository, error) {
	return &membershipRepository{session{store: s}}, nil
}

// TransactionRepository returns a transaction repository that locks per call.
func (s *Store) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepository{session{store: s}}, nil
}

// session routes repository calls either straight to the document (inside
// Do, where the lock is already held) or through withRead/withWrite.
type session struct {
	store  *Store
	locked bool
}

func (s session) read(fn func(*document) error) error {
	if s.locked {
		return fn(s.store.doc)
	}
	return s.store.withRead(fn)
}

func (s session) write(ctx context.Context, fn func(*document) error) error {
	if s.locked {
		s.store.dirty = true
		return fn(s.store.doc)
	}
	return s.store.withWrite(ctx, fn)
}

func (s *session) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	// Already inside a unit of work: nest by running inline.
	return fn(s)
}

func (s *session) UserRepository() (repository.UserRepository, error) {
	return &userRepository{*s}, nil
}

func (s *session) AccountRepository() (repository.AccountRepository, error) {
	return &accountRepository{*s}, nil
}

func (s *session) MembershipRepository() (repository.MembershipRepository, error) {
	return &membershipRepository{*s}, nil
}

func (s *session) TransactionRepository() (repository.TransactionRepository, error) {
	return &transactionRepository{*s}, nil
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
