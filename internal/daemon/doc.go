// Package daemon coordinates the long-running ucmusic process.
//
// It wires configuration, the history store, the conversion ledger, the
// catalog-backed enricher and the watcher into a single lifecycle with
// flock-based locking so two processes never share one music directory. The
// one-shot convert command goes through the same lock.
package daemon
