package resource

import "errors"

// ErrCapacity is returned when a request or release names a non-positive
// amount, or when a capacity is negative.
var ErrCapacity = errors.New("invalid capacity")

// ErrInvariantViolation marks a broken 0 <= claimed <= capacity invariant.
// It is raised with panic because it always indicates a modeling error.
var ErrInvariantViolation = errors.New("resource invariant violated")
