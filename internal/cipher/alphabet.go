package cipher

const (
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower   = "abcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
	symbols = "!@#$%^&*()_+-=[]{}|;:,.<>?/~\"'\\`"
)

// Alphabet is the ordered character domain for substitution and noise. The
// order is part of the wire contract: the mapping shuffle permutes exactly
// this sequence.
const Alphabet = upper + lower + digits + symbols

var alphabetRunes = []rune(Alphabet)

// AlphabetSize is the number of characters in Alphabet.
var AlphabetSize = len(alphabetRunes)

var alphabetIndex = func() map[rune]int {
	idx := make(map[rune]int, len(alphabetRunes))
	for i, r := range alphabetRunes {
		idx[r] = i
	}
	return idx
}()

// InAlphabet reports whether r belongs to Alphabet.
func InAlphabet(r rune) bool {
	_, ok := alphabetIndex[r]
	return ok
}

// AlphabetRunes returns a copy of Alphabet as a rune slice.
func AlphabetRunes() []rune {
	out := make([]rune, len(alphabetRunes))
	copy(out, alphabetRunes)
	return out
}
