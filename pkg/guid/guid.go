// Package guid generates identifiers used to cross-reference entities
// between the geometry model and exchange files.
//
// GUIDs are 128-bit values compressed into 22 characters of the IFC
// base64 alphabet. Seeded GUIDs are stable across runs so unchanged
// entities keep their identity between exports.
package guid

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Length is the number of characters in a compressed GUID.
const Length = 22

// alphabet is the IFC base64 character set. Every character is legal
// inside a quoted ISO 10303-21 string.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

// Create returns a compressed GUID. A non-empty seed yields the same GUID
// on every call (MD5 of the seed); an empty seed yields a random one.
func Create(seed string) string {
	if seed == "" {
		return Compress(uuid.New())
	}
	sum := md5.Sum([]byte(seed))
	return Compress(uuid.UUID(sum))
}

// Compress encodes a UUID into its 22-character form. The first byte
// takes two characters and each following 3-byte group takes four.
func Compress(u uuid.UUID) string {
	var sb strings.Builder
	sb.Grow(Length)
	writeDigits(&sb, uint32(u[0]), 2)
	for i := 1; i < 16; i += 3 {
		v := uint32(u[i])<<16 | uint32(u[i+1])<<8 | uint32(u[i+2])
		writeDigits(&sb, v, 4)
	}
	return sb.String()
}

func writeDigits(sb *strings.Builder, v uint32, n int) {
	var buf [4]byte
	for i := n - 1; i >= 0; i-- {
		buf[i] = alphabet[v%64]
		v /= 64
	}
	sb.Write(buf[:n])
}

// Expand decodes a compressed GUID back into its UUID.
func Expand(g string) (uuid.UUID, error) {
	var u uuid.UUID
	if len(g) != Length {
		return u, fmt.Errorf("guid: %q has length %d, want %d", g, len(g), Length)
	}
	first, err := readDigits(g[:2])
	if err != nil {
		return u, err
	}
	if first > 0xff {
		return u, fmt.Errorf("guid: %q: leading group out of range", g)
	}
	u[0] = byte(first)
	for i, pos := 1, 2; i < 16; i, pos = i+3, pos+4 {
		v, err := readDigits(g[pos : pos+4])
		if err != nil {
			return u, err
		}
		u[i] = byte(v >> 16)
		u[i+1] = byte(v >> 8)
		u[i+2] = byte(v)
	}
	return u, nil
}

func readDigits(s string) (uint32, error) {
	var v uint32
	for i := 0; i < len(s); i++ {
		d := strings.IndexByte(alphabet, s[i])
		if d < 0 {
			return 0, fmt.Errorf("guid: invalid character %q", s[i])
		}
		v = v*64 + uint32(d)
	}
	return v, nil
}

// Valid reports whether g is a well-formed compressed GUID.
func Valid(g string) bool {
	_, err := Expand(g)
	return err == nil
}
