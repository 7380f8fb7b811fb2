// Package config provides the packmap configuration: defaults, the optional
// .packmap YAML file, validation, and XDG directory helpers.
package config
