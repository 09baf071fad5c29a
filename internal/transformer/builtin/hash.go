// Package builtin contains the small, reusable value transforms used by the
// cleaning pipeline: header normalization, value maps and row hashing.
package builtin

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"shopetl/internal/dataset"
)

// HashRow computes a deterministic SHA-256 fingerprint of a full row. Two
// rows hash equal when every value has the same kind and payload, which is
// what exact-duplicate removal compares.
//
// Canonical form, per value in column order:
//   - missing is the single byte NUL
//   - otherwise a one-letter kind tag, the payload length in bytes, ':' and
//     the payload, so Int(1), Float(1) and Text("1") never collide and no
//     payload content can shift a component boundary
//
// Output is a lowercase hex string (length 64).
func HashRow(row []dataset.Value) string {
	var b strings.Builder
	b.Grow(len(row) * 16)
	for _, v := range row {
		appendCanonicalValue(&b, v)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// appendCanonicalValue appends a kind-tagged, length-prefixed representation of v.
func appendCanonicalValue(b *strings.Builder, v dataset.Value) {
	if v.IsMissing() {
		b.WriteByte('\x00')
		return
	}

	var tag byte
	var payload string
	switch v.Kind() {
	case dataset.KindText:
		tag = 's'
		payload, _ = v.Str()
	case dataset.KindInt:
		i, _ := v.Int64()
		tag = 'i'
		payload = strconv.FormatInt(i, 10)
	case dataset.KindFloat:
		f, _ := v.Float64()
		tag = 'f'
		if math.IsNaN(f) {
			payload = "nan"
		} else {
			payload = strconv.FormatFloat(f, 'g', -1, 64)
		}
	case dataset.KindBool:
		bv, _ := v.BoolValue()
		tag = 'b'
		payload = strconv.FormatBool(bv)
	default:
		tag = '?'
		payload = v.String()
	}

	b.WriteByte(tag)
	b.WriteString(strconv.Itoa(len(payload)))
	b.WriteByte(':')
	b.WriteString(payload)
}
