package ucfile

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Key is the single-byte XOR key applied by the player to cached tracks.
const Key byte = 0xA3

// Ext is the cache entry file extension.
const Ext = ".uc"

var (
	// ErrIncomplete reports a cache entry whose content does not match its
	// embedded digest yet. Callers should skip it and retry on a later poll.
	ErrIncomplete = errors.New("cache entry incomplete")
	// ErrInvalidName reports a file name outside the {id}-{digest}.uc grammar.
	ErrInvalidName = errors.New("invalid cache entry name")
)

// Name is a parsed cache entry file name.
type Name struct {
	Raw     string
	TrackID string
	Digest  string
}

// Stem returns the name without its .uc extension ({id}-{digest}).
func (n Name) Stem() string {
	return strings.TrimSuffix(n.Raw, Ext)
}

// OutputName returns the pre-enrichment output name {id}-{digest}.{ext}.
func (n Name) OutputName(ext string) string {
	return n.Stem() + "." + strings.TrimPrefix(ext, ".")
}

// IsCacheEntry reports whether name carries the cache entry extension.
func IsCacheEntry(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// ParseName splits a cache entry name into track id and digest. The id is the
// text before the first dash; the digest sits between the last dash and the
// extension.
func ParseName(name string) (Name, error) {
	if !IsCacheEntry(name) {
		return Name{}, fmt.Errorf("%w: %q lacks %s suffix", ErrInvalidName, name, Ext)
	}
	stem := strings.TrimSuffix(name, Ext)
	first := strings.Index(stem, "-")
	last := strings.LastIndex(stem, "-")
	if first <= 0 || last == len(stem)-1 {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return Name{
		Raw:     name,
		TrackID: stem[:first],
		Digest:  strings.ToLower(stem[last+1:]),
	}, nil
}

// Decrypt returns a copy of data with every byte XORed with Key. It is its own
// inverse.
func Decrypt(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ Key
	}
	return out
}

// Digest returns the lowercase hex MD5 of data.
func Digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Verify checks decrypted data against the digest embedded in name.
func Verify(data []byte, name Name) error {
	if got := Digest(data); got != name.Digest {
		return fmt.Errorf("%w: %s digest %s, want %s", ErrIncomplete, name.Raw, got, name.Digest)
	}
	return nil
}
