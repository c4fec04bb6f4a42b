// Package redact masks protocol IDs, message text, and credentials before they
// reach audit logs. A protocol ID is the whole key to a protocol, so it is never
// logged verbatim.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	redactedSecret  = "[REDACTED_SECRET]"
)

var (
	kvSecretRe = regexp.MustCompile(`(?i)((?:api|token|secret|key|password)[-_ ]*(?:id|key|token)?\s*[:=]\s*)(['\"]?)([A-Za-z0-9+/=_\-]{8,})(['\"]?)`)
	bearerRe   = regexp.MustCompile(`(?i)\b(bearer|token)\s+([A-Za-z0-9._\-]{10,})`)
)

// idKeys hold protocol IDs and are replaced by a fingerprint.
var idKeys = map[string]struct{}{
	"protocol_id": {},
	"id":          {},
}

// textKeys hold message content and are replaced by their length.
var textKeys = map[string]struct{}{
	"text":       {},
	"input":      {},
	"output":     {},
	"plaintext":  {},
	"ciphertext": {},
}

// Fingerprint returns a short, stable stand-in for a protocol ID.
func Fingerprint(id string) string {
	sum := sha256.Sum256([]byte(id))
	return "fp:" + hex.EncodeToString(sum[:4])
}

// Text returns a placeholder recording only the length of s.
func Text(s string) string {
	return fmt.Sprintf("[REDACTED_TEXT len=%d]", len([]rune(s)))
}

// String redacts credentials from free-form text.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2[REDACTED_SECRET]$4`)
	masked = bearerRe.ReplaceAllString(masked, `$1 [REDACTED_SECRET]`)
	return masked
}

// Map redacts a metadata map. Protocol IDs become fingerprints, message text
// becomes a length, keys listed under "never_persist" are masked, and every
// other string value is scanned for credentials.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	var masked []string
	out := make(map[string]any, len(in))
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			masked = append(masked, collectNeverPersist(v)...)
			continue
		}
		out[k] = value(strings.ToLower(k), v)
	}
	for _, key := range masked {
		if _, ok := out[key]; ok {
			out[key] = redactedSecret
		}
	}
	return out
}

func value(key string, v any) any {
	s, isString := v.(string)
	if _, ok := idKeys[key]; ok && isString {
		return Fingerprint(s)
	}
	if _, ok := textKeys[key]; ok && isString {
		return Text(s)
	}
	switch tv := v.(type) {
	case string:
		return String(tv)
	case fmt.Stringer:
		return String(tv.String())
	case map[string]any:
		return Map(tv)
	case []string:
		out := make([]string, len(tv))
		for i, s := range tv {
			out[i] = String(s)
		}
		return out
	default:
		return v
	}
}

func collectNeverPersist(v any) []string {
	var raw []string
	switch tv := v.(type) {
	case string:
		raw = strings.Split(tv, ",")
	case []string:
		raw = tv
	case []any:
		for _, elem := range tv {
			raw = append(raw, fmt.Sprint(elem))
		}
	}
	out := make([]string, 0, len(raw))
	for _, key := range raw {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
