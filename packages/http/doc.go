// Package http executes resolved request descriptors over the network and
// produces normalized response records. It owns timeout enforcement,
// redirect policy and transport error classification; it never retries.
package http
