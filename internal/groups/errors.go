package groups

import (
	"net/http"

	apperrors "github.com/fleetgrid/fleetgrid/pkg/errors"
)

// Typed failure modes of the engine. Every mutation either fully applies or
// returns exactly one of these with no state change; match with errors.Is.
var (
	// ErrNameRequired rejects empty group names.
	ErrNameRequired = apperrors.New("GROUP_NAME_REQUIRED", "Group name is required", http.StatusBadRequest)
	// ErrDuplicateName rejects a name already used by a sibling under the same parent.
	ErrDuplicateName = apperrors.New("GROUP_NAME_TAKEN", "A sibling group already uses this name", http.StatusConflict)
	// ErrGroupNotFound indicates the referenced group or parent does not exist.
	ErrGroupNotFound = apperrors.New("GROUP_NOT_FOUND", "Group not found", http.StatusNotFound)
	// ErrCycle rejects reparenting a group under itself or one of its descendants.
	ErrCycle = apperrors.New("GROUP_CYCLE", "A group cannot be moved into its own subtree", http.StatusConflict)
	// ErrGroupNotEmpty rejects a non-cascading delete while child groups exist.
	ErrGroupNotEmpty = apperrors.New("GROUP_NOT_EMPTY", "Group still has child groups", http.StatusConflict)
)
