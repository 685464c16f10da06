package store

import "errors"

// Duplicate and missing-user violations are the only store failures callers
// branch on; everything else degrades to a bool/empty return and a log line.
var (
	ErrDuplicateUser        = errors.New("user already exists")
	ErrDuplicateApplication = errors.New("application already tracked")
	ErrUserNotFound         = errors.New("user not found")
)
