package schedule

import "errors"

var (
	// ErrNotFound is returned when a referenced chore, member, or entity
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the acting member is neither the
	// assignee, the creator, nor a household admin.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBusinessRule is returned for invalid mutations: bad recurrence
	// patterns, reassigning completed chores, missing required fields.
	ErrBusinessRule = errors.New("business rule violation")

	// ErrNoActiveMembers is returned when rotation is impossible because the
	// household has no active members.
	ErrNoActiveMembers = errors.New("no active members")
)
