package cipher

import (
	"math"
	"strings"
	"unicode"
)

// PolyshiftKey derives the rotating shift applied to injected noise characters.
// Each UTF-16 code unit of id contributes its value mod 17. An empty id yields
// [7].
func PolyshiftKey(id string) []int {
	units := utf16Units(id)
	if len(units) == 0 {
		return []int{7}
	}
	key := make([]int, len(units))
	for i, u := range units {
		key[i] = int(u % 17)
	}
	return key
}

// StripWhitespace removes every whitespace character from text.
func StripWhitespace(text string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, text)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func noiseCount(rng *Mulberry32, level int) int {
	return int(math.Floor(rng.Next()*3 + float64(level)))
}

// Encode substitutes every character of text through table and, when
// noiseLevel is positive, interleaves noise characters drawn from the schedule
// seeded by id. Stripping whitespace is lossy; Decode never restores it.
// Negative noise levels are treated as 0.
func Encode(text string, table Table, stripWhitespace bool, noiseLevel int, id string) string {
	if stripWhitespace {
		text = StripWhitespace(text)
	}

	var out strings.Builder
	if noiseLevel <= 0 {
		out.Grow(len(text))
		for _, r := range text {
			out.WriteRune(table.Lookup(r))
		}
		return out.String()
	}

	rng := NewMulberry32(NoiseSeed(id))
	key := PolyshiftKey(id)
	counter := 0

	out.Grow(len(text) * (noiseLevel + 2))
	for _, r := range text {
		out.WriteRune(table.Lookup(r))
		n := noiseCount(rng, noiseLevel)
		for i := 0; i < n; i++ {
			base := rng.Intn(AlphabetSize)
			shift := key[counter%len(key)]
			out.WriteRune(alphabetRunes[(base+shift)%AlphabetSize])
			counter++
		}
	}
	return out.String()
}

// Decode reverses Encode. Noise counts are recomputed from the schedule seeded
// by id rather than read from text, so decoding only recovers the plaintext
// when table, noiseLevel and id match the encoding call. Truncated input yields
// the characters recovered before the end of text.
func Decode(text string, table Table, noiseLevel int, id string) string {
	rev := table.Reverse()
	chars := []rune(text)

	var out strings.Builder
	out.Grow(len(text))
	if noiseLevel <= 0 {
		for _, r := range chars {
			out.WriteRune(rev.Lookup(r))
		}
		return out.String()
	}

	rng := NewMulberry32(NoiseSeed(id))
	for i := 0; i < len(chars); {
		out.WriteRune(rev.Lookup(chars[i]))
		n := noiseCount(rng, noiseLevel)
		for j := 0; j < n; j++ {
			rng.Next()
		}
		i += 1 + n
	}
	return out.String()
}
