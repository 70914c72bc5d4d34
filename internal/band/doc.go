// Package band defines the record type managed by bandstand: a music band with
// its coordinates, genre and record label.
//
// A Band is validated with Validate before it is stored anywhere. The natural
// order used by sorted listings is defined by Compare. Builder reads a band
// field by field from a line source, either prompting an operator or
// consuming lines of a script.
package band
