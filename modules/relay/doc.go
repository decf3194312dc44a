// Package relay implements panthere.Relay for both front ends.
//
// SessionRelay serves the HTTP surface: it keeps per-session history, gates
// calls on the usage budget, and persists SAVE_MEMORY directives. DirectRelay
// serves chat platforms: every call is a single stateless turn.
package relay
