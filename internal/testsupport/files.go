package testsupport

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MP3Payload returns a bare MPEG audio frame header followed by padding. It
// sniffs as mp3 and carries no ID3 tag.
func MP3Payload() []byte {
	data := make([]byte, 512)
	copy(data, []byte{0xFF, 0xFB, 0x90, 0x64})
	return data
}

// FLACPayload returns a minimal FLAC stream: the marker, a final STREAMINFO
// block and a few bytes starting with a frame sync code.
func FLACPayload() []byte {
	data := []byte("fLaC")
	data = append(data, 0x80, 0x00, 0x00, 0x22)
	data = append(data, make([]byte, 34)...)
	data = append(data, 0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00)
	return data
}

// Encrypt applies the cache XOR key to plain.
func Encrypt(plain []byte) []byte {
	out := make([]byte, len(plain))
	for i, b := range plain {
		out[i] = b ^ 0xA3
	}
	return out
}

// WriteCacheEntry encrypts plain into dir under "{id}-{md5(plain)}.uc" and
// returns the file name.
func WriteCacheEntry(t testing.TB, dir, id string, plain []byte) string {
	t.Helper()

	sum := md5.Sum(plain)
	return WriteCacheEntryNamed(t, dir, id+"-"+hex.EncodeToString(sum[:])+".uc", plain)
}

// WriteCacheEntryNamed encrypts plain into dir under an explicit name, which
// lets tests embed a digest that does not match.
func WriteCacheEntryNamed(t testing.TB, dir, name string, plain []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), Encrypt(plain), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return name
}

// Stem strips the ".uc" suffix from a cache entry name.
func Stem(name string) string {
	return strings.TrimSuffix(name, ".uc")
}
