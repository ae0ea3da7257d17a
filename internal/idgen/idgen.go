// Package idgen generates entity ids for adapter-created records. An id
// combines wall-clock milliseconds, a monotonic counter, and a
// process-start nonce; collisions would need two processes drawing the
// same nonce in the same millisecond, which this workload never approaches.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"
)

// base36Alphabet is the character set for base36 encoding (0-9, a-z).
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// encodeBase36 converts a uint64 to a fixed-width base36 string.
func encodeBase36(v uint64, width int) string {
	num := new(big.Int).SetUint64(v)
	base := big.NewInt(36)
	mod := new(big.Int)
	chars := make([]byte, 0, width)
	for num.Sign() > 0 {
		num.DivMod(num, base, mod)
		chars = append(chars, base36Alphabet[mod.Int64()])
	}
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}
	s := string(chars)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return s
}

// Generator issues unique ids for one process.
type Generator struct {
	nonce   string
	counter atomic.Uint64
	now     func() time.Time
}

// New creates a generator with a random process-start nonce.
func New() *Generator {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Degrade to a time-derived nonce; uniqueness within the process
		// still holds via the counter.
		binary.BigEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	}
	return &Generator{
		nonce: encodeBase36(binary.BigEndian.Uint64(buf[:]), 6),
		now:   time.Now,
	}
}

// Next returns a new id with the given prefix, e.g. "tool-1m3k9...-0001-a9x3k2".
func (g *Generator) Next(prefix string) string {
	ms := uint64(g.now().UnixMilli())
	n := g.counter.Add(1)
	return fmt.Sprintf("%s-%s-%s-%s", prefix, encodeBase36(ms, 9), encodeBase36(n, 4), g.nonce)
}
