package protocol

import "regexp"

// Rating is a coarse strength label for a protocol configuration.
type Rating string

const (
	RatingUnsecure Rating = "UNSECURE"
	RatingGhost    Rating = "GHOST"
	RatingPhantom  Rating = "PHANTOM"
	RatingSpectre  Rating = "SPECTRE"
)

// Assessment describes how hard a configuration is to unpick by hand. It is a
// heuristic for display, not a security guarantee.
type Assessment struct {
	Score         int    `json:"score"`
	Rating        Rating `json:"rating"`
	CrackEstimate string `json:"crack_estimate"`
}

var hasLetter = regexp.MustCompile(`[a-zA-Z]`)

// Assess scores a protocol ID together with the encode options used with it.
func Assess(id string, stripWhitespace bool, noiseLevel int) Assessment {
	score := 0
	switch {
	case idLength(id) >= 10 && hasLetter.MatchString(id):
		score += 3
	case !IsLegacy(id):
		score++
	}
	if stripWhitespace {
		score++
	}
	switch {
	case noiseLevel >= 2:
		score += 2
	case noiseLevel == 1:
		score++
	}

	a := Assessment{Score: score, CrackEstimate: crackEstimate(id)}
	switch {
	case score >= 6:
		a.Rating = RatingSpectre
	case score >= 4:
		a.Rating = RatingPhantom
	case score >= 2:
		a.Rating = RatingGhost
	default:
		a.Rating = RatingUnsecure
	}
	return a
}

func crackEstimate(id string) string {
	if IsLegacy(id) {
		return "1.2 Seconds"
	}
	switch n := idLength(id); {
	case n > 10:
		return "> 100k Years"
	case n > 8:
		return "120 Days"
	case n > 6:
		return "4 Hours"
	case n > 4:
		return "12 Minutes"
	default:
		return "Instant"
	}
}

func idLength(id string) int {
	return len([]rune(id))
}
