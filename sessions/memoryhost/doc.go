// Package memoryhost is the in-memory reference implementation of
// sessions.Host. It is used by tests and single-process deployments; the map
// lock guards only key lookup and insertion, never a record mutation, so
// sessions do not contend with each other.
package memoryhost
