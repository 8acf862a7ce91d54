// Package tvdb provides a minimal TVDB v4 API client covering series search
// and episode listing, with lazy bearer-token authentication.
package tvdb
