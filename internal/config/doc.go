// Package config loads, validates, and normalizes Longbox configuration.
//
// Configuration is a single TOML file resolved from an explicit path, then
// ~/.config/longbox/config.toml, then ./longbox.toml. Defaults are applied
// first so a partial file only needs to override what differs, and every
// path field is expanded and absolutized before other packages see it.
package config
