package rbac

import (
	"errors"
	"fmt"
)

// ErrMissingSubject is returned when a check is called with a blank user or
// org id. That is a caller bug, not an authorization denial.
var ErrMissingSubject = errors.New("rbac: user and organization ids are required")

// ForbiddenError is returned by the Require* checks when the caller's
// membership does not satisfy the check. It carries the failed check and
// what would have been required so boundaries can log a precise reason.
type ForbiddenError struct {
	UserID   string
	OrgID    string
	Check    string
	Required string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("rbac: %s check failed for user %s in org %s: requires %s",
		e.Check, e.UserID, e.OrgID, e.Required)
}
