// Package idgen генерирует ULID-подобные идентификаторы заявок:
// 10 символов времени в миллисекундах (48 бит) и 16 символов случайной части (80 бит)
// в алфавите Crockford base32 без I, L, O, U. Строки сортируются по времени создания.
//
// Уникальность только вероятностная: два идентификатора одной миллисекунды совпадают
// с вероятностью 2^-80, среди n идентификаторов одной миллисекунды - примерно n^2 / 2^81.
package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	TimeLen   = 10
	RandomLen = 16
	randBytes = 10
)

type Generator struct {
	Now  func() time.Time
	Rand io.Reader
}

// New - генератор на системных часах и crypto/rand
func New() *Generator {
	return &Generator{Now: time.Now, Rand: rand.Reader}
}

func (g *Generator) Generate() (string, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	src := rand.Reader
	if g.Rand != nil {
		src = g.Rand
	}

	buf := make([]byte, randBytes)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return encodeTime(now().UnixMilli()) + encodeRandom(buf), nil
}

func encodeTime(ms int64) string {
	out := make([]byte, TimeLen)
	v := uint64(ms)
	for i := TimeLen - 1; i >= 0; i-- {
		out[i] = Alphabet[v%32]
		v /= 32
	}
	return string(out)
}

// байты упаковываются в 5-битные группы, старшие биты первыми
func encodeRandom(b []byte) string {
	out := make([]byte, 0, RandomLen)
	var acc uint32
	bits := 0
	for _, c := range b {
		acc = acc<<8 | uint32(c)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out = append(out, Alphabet[(acc>>uint(bits))&31])
		}
		acc &= 1<<uint(bits) - 1
	}
	if bits > 0 && len(out) < RandomLen {
		out = append(out, Alphabet[(acc<<uint(5-bits))&31])
	}
	for len(out) < RandomLen {
		out = append(out, Alphabet[0])
	}
	return string(out[:RandomLen])
}
