package resource

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMigrationAllocation is the cause of every MigrationError.
var ErrMigrationAllocation = errors.New("migration allocation failed")

// MigrationError reports a VM that could not be reserved on its migration
// target. The host is left as it was before the attempt.
type MigrationError struct {
	VM       VMKey
	HostID   int
	Resource string
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("allocation of VM %s to host #%d failed by %s: %v", e.VM, e.HostID, e.Resource, ErrMigrationAllocation)
}

func (e *MigrationError) Unwrap() error { return ErrMigrationAllocation }
