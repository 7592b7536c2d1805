// Package config loads, normalizes, and validates ocingest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENCAST_PASSWORD. The Config type centralizes every knob the archiver and
// CLI need so the Opencast endpoint, recording layout, and feature toggles are
// resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors. A
// loaded Config is treated as read-only and handed to components explicitly.
package config
