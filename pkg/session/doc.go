// Package session tracks the harvesting session's state and gets it past the
// source's anti-automation checkpoint.
//
// The lifecycle is
//
//	unauthenticated -> checkpoint-pending -> ready <-> degraded
//
// Gatekeeper.Establish drives the first two transitions by polling the page
// title and a set of DOM markers on a fixed interval. The paginator moves the
// Tracker between ready and degraded during recovery.
package session
