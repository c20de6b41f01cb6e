package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
)

// Lock serializes runs that write to one corpus.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Lock takes the corpus lock without waiting. A lock held by another run
// yields an error matching errors.ErrLocked.
func (s *Store) Lock() (*Lock, error) {
	if err := os.MkdirAll(s.root, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", s.root, err)
	}
	path := filepath.Join(s.root, constants.LockFileName)
	l := &Lock{path: path, flock: flock.New(path)}

	ok, err := l.flock.TryLock()
	if err != nil {
		return nil, errors.WrapIO("lock", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held by another run", errors.ErrLocked, path)
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	return errors.WrapIO("unlock", l.path, l.flock.Unlock())
}
