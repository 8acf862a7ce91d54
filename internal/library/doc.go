// Package library maps identified series to their destination directories
// in the media library.
package library
