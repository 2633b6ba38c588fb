// Command ucmusic watches the music player's cache directory, decrypts
// finished *.uc entries into Music/ and names them from the catalog.
//
// Running ucmusic with no subcommand starts the watcher in the foreground
// until SIGINT or SIGTERM. Subcommands cover one-shot conversion, history and
// ledger inspection, and config scaffolding.
package main
