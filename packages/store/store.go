// Package store is the durable home of saved requests, environments and
// the execution history. JSON state files are written atomically
// (temp-then-rename) under a per-file advisory lock; history lives in an
// append-only SQLite log. No other package touches the files directly.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	requestsFile     = "requests.json"
	environmentsFile = "environments.json"
	historyFile      = "history.db"

	// Owner-only modes: stored requests may embed credentials.
	secureFileMode = 0o600
	secureDirMode  = 0o700

	// lockAcquireTimeout bounds how long a writer waits for a concurrent
	// process before giving up with a lock-contention error.
	lockAcquireTimeout = 5 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// Store owns the data directory. It is safe for use by concurrent
// processes: every read-modify-write cycle runs under an advisory file
// lock scoped to the file being mutated.
type Store struct {
	dir          string
	historyLimit int
}

type Option func(*Store)

// WithHistoryLimit caps the history log; older entries are pruned past it.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		s.historyLimit = n
	}
}

// Open prepares a store rooted at dir, creating it if needed. An empty dir
// selects ~/.reqforge.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, &Error{Kind: KindIOFailure, Name: "home directory", Err: err}
		}
		dir = filepath.Join(home, ".reqforge")
	}

	if err := os.MkdirAll(dir, secureDirMode); err != nil {
		return nil, &Error{Kind: KindIOFailure, Name: dir, Err: err}
	}

	s := &Store{dir: dir, historyLimit: 1000}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) requestsPath() string     { return filepath.Join(s.dir, requestsFile) }
func (s *Store) environmentsPath() string { return filepath.Join(s.dir, environmentsFile) }
func (s *Store) historyPath() string      { return filepath.Join(s.dir, historyFile) }

// withLock runs fn while holding the advisory lock for path. Lock files
// sit next to the data files so separate logical files never contend.
func (s *Store) withLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), lockAcquireTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return &Error{Kind: KindLockContention, Name: path, Err: err}
	}
	defer lock.Unlock()

	return fn()
}

// writeFileAtomic makes the new contents visible only once fully written:
// marshal to a temp file in the same directory, fsync, then rename over
// the canonical path. A crash mid-write leaves the old state intact.
func (s *Store) writeFileAtomic(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &Error{Kind: KindIOFailure, Name: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return &Error{Kind: KindIOFailure, Name: path, Err: err}
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &Error{Kind: KindIOFailure, Name: path, Err: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Chmod(tmpName, secureFileMode); err != nil {
		os.Remove(tmpName)
		return &Error{Kind: KindIOFailure, Name: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &Error{Kind: KindIOFailure, Name: path, Err: err}
	}
	return nil
}

// readJSONFile loads path into out. A missing file is not an error: out is
// left at its zero value and ok is false. Unparseable contents surface as
// a corrupt-file error so the caller can offer recovery instead of
// crashing.
func (s *Store) readJSONFile(path string, out any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &Error{Kind: KindIOFailure, Name: path, Err: err}
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, &Error{Kind: KindCorruptFile, Name: path, Err: err}
	}
	return true, nil
}

// Reset rewrites the saved-request and environment files to their empty
// states. It is the recovery path offered when a corrupt file is detected;
// history is left alone.
func (s *Store) Reset() error {
	if err := s.withLock(s.requestsPath(), func() error {
		return s.writeFileAtomic(s.requestsPath(), map[string]*SavedRequest{})
	}); err != nil {
		return err
	}
	return s.withLock(s.environmentsPath(), func() error {
		return s.writeFileAtomic(s.environmentsPath(), map[string]map[string]string{})
	})
}
