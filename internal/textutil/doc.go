// Package textutil provides filename sanitization for converted tracks.
package textutil
