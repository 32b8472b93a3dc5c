// Package service holds the application layer: use cases that coordinate the
// domain model with the stores defined in internal/store.
//
// Each use case area lives in its own subpackage (selection, decks, dynsync,
// auth). This package carries what they share: the error helpers that map
// store failures onto the domain taxonomy, and the settings service.
//
// Mutating operations on a user's aggregate run under that user's lock from
// internal/userlock and inside a single store transaction.
package service
