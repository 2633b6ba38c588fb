// Package sniff infers audio container formats from decrypted track bytes.
package sniff

import (
	"github.com/h2non/filetype"
)

// Unknown is the extension used when no signature matches.
const Unknown = "unknown"

// headerSize bounds how much of a buffer is inspected; every signature the
// matcher knows sits well inside it.
const headerSize = 8192

// Extension returns the file extension (without dot) inferred from the leading
// signature of data. known is false when nothing matched, including for an
// empty buffer.
func Extension(data []byte) (ext string, known bool) {
	if len(data) > headerSize {
		data = data[:headerSize]
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || kind.Extension == "" {
		return Unknown, false
	}
	return kind.Extension, true
}
