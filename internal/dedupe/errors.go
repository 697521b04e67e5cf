package dedupe

import "errors"

var (
	// ErrNotMember is returned when the photo to keep is not a current
	// member of the group or belongs to a different owner.
	ErrNotMember = errors.New("photo is not a member of the group")

	// ErrWrongStatus is returned when a workflow operation is invalid for
	// the group's current status.
	ErrWrongStatus = errors.New("operation not allowed for group status")
)
