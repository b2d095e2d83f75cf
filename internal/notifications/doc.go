// Package notifications delivers push notifications through ntfy. With no
// topic configured every call is a no-op, so callers never guard their
// notification sites.
package notifications
