// Package experiment runs replications of a simulation model and summarizes
// their results.
package experiment

import "errors"

// ErrConfiguration marks invalid run boundaries or experiment settings. It
// is reported before any replication starts.
var ErrConfiguration = errors.New("invalid configuration")
