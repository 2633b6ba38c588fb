package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters and control characters are removed. The result is NFC-normalized
// and trimmed of surrounding whitespace and trailing dots.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = norm.NFC.String(name)
	return strings.TrimRight(strings.TrimSpace(name), ". ")
}

// TrackFileName builds "{title} - {artists}{ext}" from sanitized parts.
// An empty artist list yields "{title}{ext}".
func TrackFileName(title, artists, ext string) string {
	title = SanitizeFileName(title)
	artists = SanitizeFileName(artists)
	switch {
	case title == "" && artists == "":
		return ""
	case artists == "":
		return title + ext
	case title == "":
		return artists + ext
	}
	return title + " - " + artists + ext
}
