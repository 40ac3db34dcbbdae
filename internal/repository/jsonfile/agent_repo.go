// internal/repository/jsonfile/agent_repo.go
package jsonfile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/filelock"
)

// AgentRepository keeps every agent record in a single JSON document.
// Each operation re-reads the file, so hand edits are picked up without a
// restart. Mutations hold the write lock for the full read-modify-write and
// replace the document atomically.
type AgentRepository struct {
	path     string
	lockPath string
	scheme   address.Scheme
	now      func() time.Time

	mu sync.RWMutex
}

var _ agent.Repository = (*AgentRepository)(nil)

// NewAgentRepository opens the document at path, creating an empty one when
// it does not exist yet.
func NewAgentRepository(path string, scheme address.Scheme) (*AgentRepository, error) {
	r := &AgentRepository{
		path:     path,
		lockPath: path + ".lock",
		scheme:   scheme,
		now:      func() time.Time { return time.Now().UTC() },
	}

	err := r.mutate(context.Background(), func(c *collection) (bool, error) {
		_, statErr := os.Stat(r.path)
		return os.IsNotExist(statErr), nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AgentRepository) Path() string           { return r.path }
func (r *AgentRepository) Scheme() address.Scheme { return r.scheme }

// List returns records in store order: insertion order for positional
// stores, creation time for slug stores.
func (r *AgentRepository) List(ctx context.Context) ([]*agent.Agent, error) {
	c, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	return c.list(), nil
}

func (r *AgentRepository) Get(ctx context.Context, addr string) (*agent.Agent, error) {
	c, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	a, ok := c.get(addr)
	if !ok {
		return nil, notFound(addr)
	}
	return a.Clone(), nil
}

// Create assigns an address through the scheme and persists the record.
// a.Address, when set, is the requested address.
func (r *AgentRepository) Create(ctx context.Context, a *agent.Agent) (*agent.Agent, error) {
	rec := a.Clone()
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, xerrors.Invalid("%s", err.Error())
	}

	err := r.mutate(ctx, func(c *collection) (bool, error) {
		addr, err := r.scheme.Assign(rec.Name, rec.Address, c.order)
		if err != nil {
			return false, err
		}
		now := r.now()
		rec.Address = addr
		rec.CreatedAt = now
		rec.UpdatedAt = now
		c.add(rec)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Update applies mutate to a copy of the record and persists the result.
// The address and creation time cannot be changed.
func (r *AgentRepository) Update(ctx context.Context, addr string, mutate func(*agent.Agent) error) (*agent.Agent, error) {
	var out *agent.Agent
	err := r.mutate(ctx, func(c *collection) (bool, error) {
		cur, ok := c.get(addr)
		if !ok {
			return false, notFound(addr)
		}

		next := cur.Clone()
		if mutate != nil {
			if err := mutate(next); err != nil {
				return false, err
			}
		}
		next.Normalize()
		if err := next.Validate(); err != nil {
			return false, xerrors.Invalid("%s", err.Error())
		}

		next.Address = cur.Address
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = r.now()
		// UpdatedAt keys artifact caches, so it must move forward
		if !next.UpdatedAt.After(cur.UpdatedAt) {
			next.UpdatedAt = cur.UpdatedAt.Add(time.Microsecond)
		}
		c.replace(next)
		out = next.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record. The photo it references is left in place.
func (r *AgentRepository) Delete(ctx context.Context, addr string) error {
	return r.mutate(ctx, func(c *collection) (bool, error) {
		if _, ok := c.get(addr); !ok {
			return false, notFound(addr)
		}
		if !r.scheme.Deletable() {
			return false, fmt.Errorf("%w: %s addresses cannot be deleted without renumbering other cards",
				xerrors.ErrConflict, r.scheme.Name())
		}
		c.remove(addr)
		return true, nil
	})
}

func (r *AgentRepository) read(ctx context.Context) (*collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	lock, err := filelock.Acquire(r.lockPath, true)
	if err != nil {
		return nil, xerrors.Storage("lock agents file", err)
	}
	defer lock.Release()

	return r.loadLocked()
}

// mutate runs fn over a freshly loaded collection under both locks and
// writes the document back when fn reports a change.
func (r *AgentRepository) mutate(ctx context.Context, fn func(c *collection) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lock, err := filelock.Acquire(r.lockPath, false)
	if err != nil {
		return xerrors.Storage("lock agents file", err)
	}
	defer lock.Release()

	c, err := r.loadLocked()
	if err != nil {
		return err
	}
	changed, err := fn(c)
	if err != nil || !changed {
		return err
	}
	return r.saveLocked(c)
}

func (r *AgentRepository) loadLocked() (*collection, error) {
	data, err := readDocument(r.path)
	if err != nil {
		return nil, xerrors.Storage("read "+r.path, err)
	}
	c, err := decodeCollection(data, r.scheme)
	if err != nil {
		return nil, xerrors.Storage("decode "+r.path, err)
	}
	return c, nil
}

func (r *AgentRepository) saveLocked(c *collection) error {
	if err := writeJSONAtomic(r.path, c.document()); err != nil {
		return xerrors.Storage("write "+r.path, err)
	}
	return nil
}

func notFound(addr string) error {
	return fmt.Errorf("%w: agent %q", xerrors.ErrNotFound, addr)
}
