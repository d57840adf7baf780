package pkgstore

import "time"

// Update describes one additive mutation to a package. A nil field leaves
// that aspect untouched.
type Update struct {
	// Status requests a lifecycle transition. Illegal transitions are
	// rejected and nothing is written.
	Status *Status
	// Merge is additively merged into the package metadata.
	Merge *Metadata
}

// Store is the package repository contract. The concrete backing (sqlite
// file, in-memory fake) is an implementation detail behind this interface.
type Store interface {
	// Create inserts a new package. The initial status is recorded in the
	// status history.
	Create(p *Package) error

	// Get returns the package with the given id, or ErrNotFound.
	Get(id string) (*Package, error)

	// List returns all packages in insertion order.
	List() ([]*Package, error)

	// Update applies the update to the package. A status transition is
	// validated against the lifecycle rules and appended to the status
	// history; metadata is merged additively.
	Update(id string, up Update) error

	// Close releases the backing resources.
	Close() error
}

// seedHistory records the initial status as the first history entry when
// the producer did not supply one.
func seedHistory(p *Package) {
	if len(p.Metadata.StatusHistory) == 0 {
		p.Metadata.StatusHistory = []StatusChange{{
			Status: p.Status,
			At:     time.Now().UTC(),
		}}
	}
}

// applyUpdate mutates p in place according to up. Shared by the store
// implementations so lifecycle enforcement lives in one place.
func applyUpdate(p *Package, up Update) error {
	if up.Status != nil {
		if !CanTransition(p.Status, *up.Status) {
			return ErrIllegalTransition
		}
		p.Status = *up.Status
		p.Metadata.StatusHistory = append(p.Metadata.StatusHistory, StatusChange{
			Status: *up.Status,
			At:     time.Now().UTC(),
		})
	}
	p.Metadata.MergeFrom(up.Merge)
	return nil
}
