// Package ids derives stable, deterministic identifiers from content, used
// wherever a platform gives us no native id (forum posters, publication
// authors/posts, the synthetic Publication community).
package ids

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/google/uuid"
)

// FakeID hashes s with MD5 and returns the low 64 bits of the digest
// (big-endian) reinterpreted as an int64, so the result can be negative;
// the high 64 bits of the digest are discarded. It is deterministic across
// platforms and runs (§4.1): the same string always yields the same id.
func FakeID(s string) int64 {
	sum := md5.Sum([]byte(s))
	// The python original keeps the full 128-bit digest as a big int; Go's
	// canonical ids are int64, so we fold to the low 8 bytes. Collisions
	// within one platform's id space are exponentially unlikely for the
	// corpus sizes this pipeline targets.
	return int64(binary.BigEndian.Uint64(sum[8:]))
}

// FakeUUID derives a stable name-based (version 3, MD5) UUID from s in the
// nil namespace. It is not the raw MD5 digest of s: the namespace is hashed
// in and the version/variant bits are overwritten. The in-memory store uses
// it for community keys; author keys come from AuthorUUID.
func FakeUUID(s string) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, []byte(s))
}

// AuthorUUID derives the stable UUID used as the counter-core author key for
// (platform, author id, name) triples — the same natural key that makes an
// Author unique in the canonical store (§3).
func AuthorUUID(platform int, authorID int64, name string) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, []byte(keyFor(platform, authorID, name)))
}

func keyFor(platform int, authorID int64, name string) string {
	buf := make([]byte, 0, 32+len(name))
	buf = appendInt(buf, int64(platform))
	buf = append(buf, ':')
	buf = appendInt(buf, authorID)
	buf = append(buf, ':')
	buf = append(buf, name...)
	return string(buf)
}

func appendInt(buf []byte, n int64) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var tmp [20]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		tmp[i] = '-'
	}
	return append(buf, tmp[i:]...)
}
