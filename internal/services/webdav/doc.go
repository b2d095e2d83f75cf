// Package webdav reads comic collection folders from a WebDAV share. It
// exposes point-in-time folder snapshots with per-file and per-folder change
// tokens, and downloads individual files for recognition submission.
package webdav
