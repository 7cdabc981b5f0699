// Package descriptor defines the in-memory representation of a composable
// HTTP request: method, URL, ordered headers, body variant, auth intent and
// transport policy. It is pure data plus validation; resolution and
// execution live elsewhere.
package descriptor
