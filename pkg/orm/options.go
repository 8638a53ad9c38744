package orm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/marshallshelly/modspace/pkg/registry"
	"github.com/marshallshelly/modspace/pkg/runtime"
)

// OrphanPolicy controls how Remove reacts when deleting an orphaned child
// of a one-to-many relation fails.
type OrphanPolicy int

const (
	// OrphanStopOnError aborts on the first failed child delete. The parent
	// row is kept and the error returned.
	OrphanStopOnError OrphanPolicy = iota
	// OrphanCollectErrors attempts every child and returns the joined
	// errors. The parent row is kept when any child failed.
	OrphanCollectErrors
	// OrphanBestEffort logs failed child deletes and deletes the parent anyway.
	OrphanBestEffort
)

// String implements fmt.Stringer.
func (p OrphanPolicy) String() string {
	switch p {
	case OrphanStopOnError:
		return "stop"
	case OrphanCollectErrors:
		return "collect"
	case OrphanBestEffort:
		return "best-effort"
	}
	return fmt.Sprintf("OrphanPolicy(%d)", int(p))
}

// ParseOrphanPolicy parses "stop", "collect" or "best-effort". The empty
// string selects OrphanStopOnError.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop", "stop-on-error":
		return OrphanStopOnError, nil
	case "collect", "collect-errors":
		return OrphanCollectErrors, nil
	case "best-effort", "besteffort":
		return OrphanBestEffort, nil
	}
	return OrphanStopOnError, fmt.Errorf("%w: unknown orphan policy %q", runtime.ErrInvalidArgument, s)
}

// Option configures an EntityManager.
type Option func(*EntityManager)

// WithLogger sets the logger used for relation diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(em *EntityManager) {
		if logger != nil {
			em.logger = logger
		}
	}
}

// WithOrphanPolicy sets the orphan removal policy.
func WithOrphanPolicy(policy OrphanPolicy) Option {
	return func(em *EntityManager) {
		em.orphans = policy
	}
}

// WithRegistry replaces the process-wide metadata registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(em *EntityManager) {
		if reg != nil {
			em.registry = reg
		}
	}
}
