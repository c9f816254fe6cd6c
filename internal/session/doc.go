// Package session holds the client's authentication state and mediates the
// operations that change it.
//
// A Manager seeds itself from a store.Store, restores the stored session
// once at startup with Restore, and exposes Login, Register, Logout and
// UpdateProfile. Every change is published to subscribers as a State
// snapshot. Credentials are never installed globally: callers building their
// own requests take them from Manager.Credentials.
//
// Asynchronous operations are tagged with the session epoch current when
// they started. Logout and a committed login advance the epoch, and any
// result that arrives for an older epoch is dropped, so a slow login cannot
// bring a session back after the user logged out.
package session
