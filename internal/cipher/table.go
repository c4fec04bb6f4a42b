package cipher

import "sort"

// LegacyID identifies the built-in legacy preset. Its table is fixed and is
// not derived from the ID.
const LegacyID = "Legacy-00"

// Table maps a source character to its substitute. Characters without an entry
// pass through unchanged.
type Table map[rune]rune

// Lookup returns the substitute for r, or r itself when the table has no entry.
func (t Table) Lookup(r rune) rune {
	if out, ok := t[r]; ok {
		return out
	}
	return r
}

// Reverse inverts the table. When several source characters share a
// substitute, the first one in Alphabet order keeps it. Keys outside Alphabet
// are visited afterwards in ascending code point order.
func (t Table) Reverse() Table {
	rev := make(Table, len(t))
	for _, k := range t.Keys() {
		v := t[k]
		if _, taken := rev[v]; !taken {
			rev[v] = k
		}
	}
	return rev
}

// Collisions lists, per substitute, every source character mapped onto it when
// more than one is. Sources are reported in Alphabet order.
func (t Table) Collisions() map[rune][]rune {
	seen := make(map[rune][]rune)
	for _, k := range t.Keys() {
		seen[t[k]] = append(seen[t[k]], k)
	}
	out := make(map[rune][]rune)
	for v, ks := range seen {
		if len(ks) > 1 {
			out[v] = ks
		}
	}
	return out
}

// IsBijection reports whether the table is a permutation of Alphabet.
func (t Table) IsBijection() bool {
	if len(t) != AlphabetSize {
		return false
	}
	used := make(map[rune]struct{}, len(t))
	for k, v := range t {
		if !InAlphabet(k) || !InAlphabet(v) {
			return false
		}
		if _, dup := used[v]; dup {
			return false
		}
		used[v] = struct{}{}
	}
	return true
}

// Clone returns an independent copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Keys returns the table keys in Alphabet order followed by any others sorted
// by code point.
func (t Table) Keys() []rune {
	keys := make([]rune, 0, len(t))
	for _, r := range alphabetRunes {
		if _, ok := t[r]; ok {
			keys = append(keys, r)
		}
	}
	var extra []rune
	for r := range t {
		if !InAlphabet(r) {
			extra = append(extra, r)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(keys, extra...)
}

// DeriveMapping builds the substitution table for id by running a seeded
// Fisher-Yates shuffle over Alphabet. The result depends only on id.
func DeriveMapping(id string) Table {
	rng := NewMulberry32(MappingSeed(id))
	shuffled := AlphabetRunes()
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	table := make(Table, len(shuffled))
	for k, r := range alphabetRunes {
		table[r] = shuffled[k]
	}
	return table
}

var legacyTable = Table{
	'A': '@', 'B': '#', 'C': '%', 'D': '^', 'E': '&',
	'F': '(', 'G': ')', 'H': ':', 'I': '"', 'J': '}',
	'K': '{', 'L': '|', 'M': '\\', 'N': '3', 'O': '5',
	'P': '7', 'Q': 'Q', 'R': 'K', 'S': 'L', 'T': '.',
	'U': ',', 'V': '=', 'W': '+', 'X': '-', 'Y': '±', 'Z': '~',

	// '6' and '9' share a glyph; decoding yields '6'.
	'0': 'ظ', '1': 'ذ', '2': '٠', '3': '؛', '4': '?',
	'5': 'م', '6': 'ض', '7': 'ه', '8': 'ر', '9': 'ض',
}

// LegacyTable returns a copy of the built-in legacy preset. It covers only
// uppercase letters and digits and is not a bijection.
func LegacyTable() Table {
	return legacyTable.Clone()
}

// TableFor returns the table used for id: the legacy preset for LegacyID and
// the derived mapping for everything else.
func TableFor(id string) Table {
	if id == LegacyID {
		return LegacyTable()
	}
	return DeriveMapping(id)
}
