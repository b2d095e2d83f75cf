// Package progress tracks asynchronous recognition sessions. A registry
// receives callback updates, answers status queries from a layered set of
// sources, and streams live events to at most one subscriber per session.
package progress
