// Package tagging writes title/artist/album tags and front-cover art into
// decrypted audio files.
//
// The container family is chosen once from the file extension. Each family
// is a Writer; extensions outside the closed set resolve to KindUnsupported,
// whose writer returns ErrUnsupported.
package tagging

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for containers without a tag writer.
var ErrUnsupported = errors.New("unsupported container for tagging")

// Kind identifies a container family.
type Kind int

const (
	KindUnsupported Kind = iota
	KindMP3
	KindMP4
	KindFLAC
)

func (k Kind) String() string {
	switch k {
	case KindMP3:
		return "mp3"
	case KindMP4:
		return "mp4"
	case KindFLAC:
		return "flac"
	default:
		return "unsupported"
	}
}

// Tags are the text fields written into a container.
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// Writer is the uniform tagging capability of a container kind.
type Writer interface {
	WriteTags(path string, tags Tags) error
	WriteCover(path string, jpeg []byte) error
}

const (
	coverMIME        = "image/jpeg"
	coverDescription = "Front cover"
)

// KindForExt maps an extension (with or without the leading dot) to a kind.
func KindForExt(ext string) Kind {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "mp3":
		return KindMP3
	case "m4a", "mp4":
		return KindMP4
	case "flac":
		return KindFLAC
	default:
		return KindUnsupported
	}
}

// KindForPath is KindForExt applied to the extension of path.
func KindForPath(path string) Kind {
	return KindForExt(filepath.Ext(path))
}

// WriterFor returns the writer for kind.
func WriterFor(kind Kind) Writer {
	switch kind {
	case KindMP3:
		return id3Writer{}
	case KindMP4:
		return mp4Writer{}
	case KindFLAC:
		return flacWriter{}
	default:
		return unsupportedWriter{}
	}
}

type unsupportedWriter struct{}

func (unsupportedWriter) WriteTags(string, Tags) error    { return ErrUnsupported }
func (unsupportedWriter) WriteCover(string, []byte) error { return ErrUnsupported }
