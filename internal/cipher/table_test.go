package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet(t *testing.T) {
	require.Equal(t, 94, AlphabetSize)
	seen := make(map[rune]bool)
	for _, r := range Alphabet {
		require.False(t, seen[r], "duplicate %q", r)
		require.True(t, r > ' ' && r < 0x7f, "non printable %q", r)
		seen[r] = true
	}
	assert.Equal(t, 'A', alphabetRunes[0])
	assert.Equal(t, '`', alphabetRunes[AlphabetSize-1])
}

func shuffledOf(table Table) string {
	out := make([]rune, 0, len(table))
	for _, r := range alphabetRunes {
		out = append(out, table[r])
	}
	return string(out)
}

func TestDeriveMappingReferenceVectors(t *testing.T) {
	tests := []struct {
		id       string
		shuffled string
	}{
		{"abc", ":^?&jnl-R*Du0,%Lt{QUpc5.EV9}gWx=s)z\\YX8+ey@>1!|o(JfwaI`rZb6OSm'Pd7TKH<vi;N]#3_kF4Aq2MGC~B$\"h/"},
		{"", "SmcC+N=r[z\"o?]lgRT6#b%Zn$^fV9A>|OXk}3@)50PGqj(,D'ht;wI!Kd~{4LF-Hyp8U27v1/JWMEYaBs_iQx*<u`.&\\:e"},
		{"Legacy-00", "H7wC0ksy6N|o/M!YE.p\"J2c>m~i9[;Kh'T_ZdaXn3=v:BI1A&U*}gS%l4b#r^jLDFz?G{5+O]Q,(xWuV\\-<)tqe8`P@fR$"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.shuffled, shuffledOf(DeriveMapping(tt.id)))
		})
	}
}

func TestDeriveMappingIsStableBijection(t *testing.T) {
	for _, id := range []string{"abc", "", "Z", "Protocol-X9", "k3y with spaces", "日本語"} {
		first := DeriveMapping(id)
		second := DeriveMapping(id)
		assert.Equal(t, first, second, id)
		assert.True(t, first.IsBijection(), id)
		assert.Empty(t, first.Collisions(), id)
	}
	assert.NotEqual(t, DeriveMapping("abc"), DeriveMapping("abd"))
}

func TestReverseRoundTripsDerivedMapping(t *testing.T) {
	table := DeriveMapping("reverse-me")
	rev := table.Reverse()
	require.Len(t, rev, AlphabetSize)
	for _, r := range alphabetRunes {
		assert.Equal(t, r, rev.Lookup(table.Lookup(r)))
	}
}

func TestReverseFirstWriteWins(t *testing.T) {
	table := Table{'b': 'x', 'a': 'x', 'c': 'y'}
	rev := table.Reverse()
	assert.Equal(t, 'a', rev['x'])
	assert.Equal(t, 'c', rev['y'])
	assert.Equal(t, map[rune][]rune{'x': {'a', 'b'}}, table.Collisions())

	// Keys outside the alphabet follow alphabet keys, lowest code point first.
	mixed := Table{'é': 'q', 'Z': 'q', 'à': 'r', 'ü': 'r'}
	rev = mixed.Reverse()
	assert.Equal(t, 'Z', rev['q'])
	assert.Equal(t, 'à', rev['r'])
}

func TestLegacyTable(t *testing.T) {
	legacy := LegacyTable()
	assert.Equal(t, '@', legacy.Lookup('A'))
	assert.Equal(t, 'a', legacy.Lookup('a'), "lowercase passes through")
	assert.False(t, legacy.IsBijection())
	assert.Equal(t, map[rune][]rune{'ض': {'6', '9'}}, legacy.Collisions())

	rev := legacy.Reverse()
	assert.Equal(t, 'A', rev.Lookup('@'))
	assert.Equal(t, '6', rev.Lookup('ض'))

	legacy['A'] = '!'
	assert.Equal(t, '@', LegacyTable().Lookup('A'), "callers get a copy")
}

func TestTableFor(t *testing.T) {
	assert.Equal(t, LegacyTable(), TableFor(LegacyID))
	assert.Equal(t, DeriveMapping("abc"), TableFor("abc"))
}
