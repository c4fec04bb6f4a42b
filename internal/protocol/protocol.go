// Package protocol manages named obfuscation protocols: the built-in legacy
// preset and protocols derived from an ID. A protocol's mapping is a pure
// function of its ID, so stores persist only the ID and descriptive fields and
// rebuild the mapping on load.
package protocol

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RowanDark/veil/internal/cipher"
)

const (
	// LegacyName is the display name of the built-in preset.
	LegacyName = "Legacy Symbol Matrix"

	// MinIDLength is the shortest ID accepted when syncing a protocol.
	MinIDLength = 3

	// GeneratedIDLength is the length of IDs produced by Generate.
	GeneratedIDLength = 12

	idChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	ErrNotFound   = errors.New("protocol not found")
	ErrBuiltIn    = errors.New("built-in protocol cannot be modified")
	ErrIDTooShort = fmt.Errorf("protocol id must be at least %d characters", MinIDLength)
	ErrInvalidID  = errors.New("protocol id cannot be empty")
)

// Protocol is a named substitution table usable for encoding and decoding.
type Protocol struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Mapping   cipher.Table `json:"-"`
	BuiltIn   bool         `json:"built_in"`
	CreatedAt time.Time    `json:"created_at"`
}

// Legacy returns the built-in legacy protocol.
func Legacy() Protocol {
	return Protocol{
		ID:      cipher.LegacyID,
		Name:    LegacyName,
		Mapping: cipher.LegacyTable(),
		BuiltIn: true,
	}
}

// IsLegacy reports whether id names the built-in preset.
func IsLegacy(id string) bool {
	return id == cipher.LegacyID
}

// Reconstruct rebuilds a protocol from an ID supplied by a user.
func Reconstruct(id string) Protocol {
	return derived(id, "Reconstructed-"+id)
}

// Generate creates a protocol with a fresh random ID.
func Generate() (Protocol, error) {
	id, err := generateID(rand.Reader, GeneratedIDLength)
	if err != nil {
		return Protocol{}, fmt.Errorf("generate protocol id: %w", err)
	}
	return derived(id, "Protocol-"+id), nil
}

func derived(id, name string) Protocol {
	return Protocol{
		ID:        id,
		Name:      name,
		Mapping:   cipher.DeriveMapping(id),
		CreatedAt: time.Now().UTC(),
	}
}

// Hydrate fills in the mapping for a protocol read back from storage.
func (p *Protocol) Hydrate() {
	if IsLegacy(p.ID) {
		p.Mapping = cipher.LegacyTable()
		p.BuiltIn = true
		return
	}
	p.Mapping = cipher.DeriveMapping(p.ID)
}

// NormalizeID tidies a user-supplied ID: surrounding whitespace and the first
// '#' are removed.
func NormalizeID(raw string) (string, error) {
	id := strings.Replace(strings.TrimSpace(raw), "#", "", 1)
	if len([]rune(id)) < MinIDLength {
		return "", ErrIDTooShort
	}
	return id, nil
}

// generateID draws n characters uniformly from idChars, rejecting bytes that
// would bias the distribution.
func generateID(r io.Reader, n int) (string, error) {
	const limit = 256 - 256%len(idChars)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, idChars[int(b)%len(idChars)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
