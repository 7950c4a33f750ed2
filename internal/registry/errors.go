package registry

import (
	"errors"
	"fmt"
)

// Error kinds per spec §4.2. AlreadyRegistered/InvalidConfig/SchemaError are
// fatal only for the affected registration, never for sibling networks
// already loaded (spec §7).
var (
	ErrAlreadyRegistered = errors.New("registry: network already registered")
	ErrInvalidConfig     = errors.New("registry: invalid network config")
	ErrSchemaError       = errors.New("registry: schema error")
	ErrStorageError      = errors.New("registry: storage error")
	ErrNotFound          = errors.New("registry: network not found")
)

// errf wraps a formatted message with ErrInvalidConfig.
func errf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
