// Package config defines the packaging settings: product layout, upstream
// endpoints, patch sources, packaging tool parameters, output locations and
// timeouts. Every constant of a packaging run lives here with a default, so a
// run without a configuration file packages Windsurf.
//
// Settings files are YAML or TOML, picked by extension.
package config
