// Package ucfile reads the player's encrypted cache entries.
//
// A cache entry is named {trackId}-{md5}.uc and holds the track bytes XORed
// with a single fixed key. Decrypt reverses the transform and Verify checks the
// decrypted bytes against the digest embedded in the file name; a mismatch
// means the player is still writing the entry, not that it is corrupt.
package ucfile
