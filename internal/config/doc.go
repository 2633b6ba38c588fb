// Package config loads, normalizes, and validates ucmusic configuration data.
//
// It supplies repository defaults (the player cache directory for the current
// platform and a Music directory beside the working directory), expands user
// paths including tilde shortcuts, reads optional TOML files, and honours
// environment fallbacks such as UCMUSIC_CACHE_DIR. A missing config file is not
// an error: the watcher runs on defaults alone.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
