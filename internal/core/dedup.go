package core

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// dedupDomainKey separates notification dedup hashes from any other use of
// BLAKE3 keyed hashing. Changing it invalidates every stored key.
var dedupDomainKey = [32]byte{
	't', 'a', 's', 'k', 't', 'i', 'm', 'e', 'r', '.', 'n', 'o', 't', 'i', 'f', 'y',
	'.', 'd', 'e', 'd', 'u', 'p', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// DedupKey hashes the parts into a hex-encoded idempotency key. Each part
// is length prefixed so ("ab","c") and ("a","bc") differ.
func DedupKey(parts ...string) string {
	hasher, err := blake3.NewKeyed(dedupDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("core: invalid dedup domain key: " + err.Error())
	}
	var lenBuf [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(p)))
		_, _ = hasher.Write(lenBuf[:])
		_, _ = hasher.Write([]byte(p))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
