// Package api defines the wire types shared by the daemon's HTTP endpoints
// and the CLI client, plus converters from the storage models.
package api
