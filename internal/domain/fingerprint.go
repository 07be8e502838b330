package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Fingerprint marks a title as already published.
type Fingerprint struct {
	Hash          string
	OriginalTitle string
	CreatedAt     time.Time
}

// NormalizeTitle lower-cases and trims a title before hashing.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// TitleHash returns the hex digest used as the fingerprint key.
// Titles equal after NormalizeTitle share a hash.
func TitleHash(title string) string {
	sum := md5.Sum([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(sum[:])
}

// NewFingerprint builds the fingerprint of a title.
func NewFingerprint(title string) Fingerprint {
	return Fingerprint{
		Hash:          TitleHash(title),
		OriginalTitle: title,
	}
}
