// Package digest is the digest auxiliary codec: hex and self-describing
// URI (ur:digest/...) forms of a 32-byte content digest, as consumed by
// digest'...' literals.
//
// dCBOR represents a digest as a plain 32-byte string, not a tagged
// value; this package only does text<->bytes conversion, never CBOR
// encoding. A full digest is exactly Size bytes; a prefix is at most
// Size bytes.
package digest

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the byte length of a full digest.
const Size = 32

// bech32Alphabet is the character set ur:... URIs use for their bech32
// data segment. This package only needs to validate/strip the ur:digest/
// prefix, not perform bech32 checksum verification, since pattern
// matching treats the decoded bytes as an opaque byte string either way.
const bech32Alphabet = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// ParseHex decodes plain hexadecimal digest text.
func ParseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("digest: invalid hex: %w", err)
	}
	return b, nil
}

// ParseURI decodes the self-describing "ur:digest/..." form. The data
// segment is bech32-alphabet encoded; this parser extracts the raw bytes
// without checksum verification (no UR library is part of the wired
// stack, and verifying the checksum is not required to use the bytes as a
// match target).
func ParseURI(s string) ([]byte, error) {
	const prefix = "ur:digest/"
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("digest: not a ur:digest URI: %q", s)
	}
	data := strings.TrimPrefix(s, prefix)
	// The whole data segment is decoded as-is; no trailing checksum is
	// stripped or verified.
	return decodeBech32Data(data)
}

func decodeBech32Data(data string) ([]byte, error) {
	values := make([]byte, 0, len(data))
	for _, c := range data {
		idx := strings.IndexRune(bech32Alphabet, c)
		if idx < 0 {
			return nil, fmt.Errorf("digest: invalid UR character %q", c)
		}
		values = append(values, byte(idx))
	}
	return convertBits(values, 5, 8, false)
}

// convertBits re-groups a slice of fromBits-wide values into a slice of
// toBits-wide bytes, the standard bech32/SegWit bit-regrouping algorithm.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	var out []byte
	maxv := uint32(1)<<toBits - 1
	for _, value := range data {
		acc = (acc << fromBits) | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad && bits > 0 {
		out = append(out, byte((acc<<(toBits-bits))&maxv))
	} else if bits >= fromBits || (acc&((1<<bits)-1)) != 0 {
		return nil, fmt.Errorf("digest: invalid padding in UR data")
	}
	return out, nil
}

// FormatHex renders bytes as lowercase hex, the canonical digest'...' form.
func FormatHex(b []byte) string {
	return hex.EncodeToString(b)
}
