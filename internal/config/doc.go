// Package config loads, normalizes, and validates showrenamer configuration.
//
// Configuration lives in a TOML file discovered at
// ~/.config/showrenamer/config.toml or ./showrenamer.toml, with every value
// carrying a usable default except the TVDB API key. Paths are expanded
// (~ and relative segments) during normalization so the rest of the
// codebase only ever sees absolute paths.
package config
