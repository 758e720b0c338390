package db

import (
	"crypto/rand"
	"encoding/hex"
)

// newDocID generates an opaque document id, the way the search engine
// used to assign ids on index.
func newDocID() string {
	buf := make([]byte, 10)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
