package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RowanDark/veil/internal/cipher"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		strip  bool
		noise  int
		score  int
		rating Rating
		crack  string
	}{
		{"legacy bare", cipher.LegacyID, false, 0, 0, RatingUnsecure, "1.2 Seconds"},
		{"legacy stealth noisy", cipher.LegacyID, true, 2, 3, RatingGhost, "1.2 Seconds"},
		{"short id", "abc", false, 0, 1, RatingUnsecure, "Instant"},
		{"medium id noise one", "abcde", false, 1, 2, RatingGhost, "12 Minutes"},
		{"seven chars", "abcdefg", true, 1, 3, RatingGhost, "4 Hours"},
		{"nine chars", "abcdefghi", true, 2, 4, RatingPhantom, "120 Days"},
		{"long id", "Zq8RtY2mPk4w", false, 0, 3, RatingGhost, "> 100k Years"},
		{"long digits only", "123456789012", false, 2, 3, RatingGhost, "> 100k Years"},
		{"maximum", "Zq8RtY2mPk4w", true, 2, 6, RatingSpectre, "> 100k Years"},
		{"ten chars", "abcdefghij", false, 1, 4, RatingPhantom, "120 Days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.id, tt.strip, tt.noise)
			assert.Equal(t, tt.score, a.Score)
			assert.Equal(t, tt.rating, a.Rating)
			assert.Equal(t, tt.crack, a.CrackEstimate)
		})
	}
}
