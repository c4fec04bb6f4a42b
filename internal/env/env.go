// Package env reads VEIL_* environment variables, falling back to the
// NCRYPTOR_* names used before the rename.
package env

import (
	"log"
	"os"
	"strings"
	"sync"
)

// LegacyPrefix is the prefix used by deprecated variable names.
const LegacyPrefix = "NCRYPTOR_"

// Prefix is the current variable prefix.
const Prefix = "VEIL_"

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of key. When key is unset, each legacy key is tried
// in order; a hit logs a deprecation warning once per legacy key.
func Lookup(key string, legacyKeys ...string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	for _, old := range legacyKeys {
		if v, ok := os.LookupEnv(old); ok {
			logDeprecated(old, key)
			return v, true
		}
	}
	return "", false
}

// Get looks up Prefix+name, then LegacyPrefix+name, and trims the result.
func Get(name string) (string, bool) {
	v, ok := Lookup(Prefix+name, LegacyPrefix+name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
