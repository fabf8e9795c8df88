// Package config loads the smtp-relay service configuration from a YAML
// file, applies defaults, and exposes typed accessors for durations and
// the SMTP port allow-list.
package config
