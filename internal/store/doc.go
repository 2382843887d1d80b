// Package store loads and saves the contest corpus through a pluggable Backend
// and substitutes a versioned seed dataset when nothing fresh is persisted.
// Backends live in subpackages (memory, local, gcs, postgres); this package
// must not import database drivers or cloud clients.
package store
