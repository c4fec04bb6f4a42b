package cipher

import "unicode/utf16"

// NoiseSuffix is appended to a protocol ID to derive the noise seed. It keeps
// the noise schedule decorrelated from the substitution permutation.
const NoiseSuffix = "_noise_layer"

// Cyrb53 hashes text into the 53-bit range. Characters are consumed as UTF-16
// code units so that IDs outside the Basic Multilingual Plane hash the same way
// they do in JavaScript clients.
func Cyrb53(text string, salt uint32) uint64 {
	h1 := uint32(0xdeadbeef) ^ salt
	h2 := uint32(0x41c6ce57) ^ salt
	for _, ch := range utf16Units(text) {
		h1 = (h1 ^ uint32(ch)) * 2654435761
		h2 = (h2 ^ uint32(ch)) * 1597334677
	}
	h1 = (h1^(h1>>16))*2246822507 ^ (h2^(h2>>13))*3266489909
	h2 = (h2^(h2>>16))*2246822507 ^ (h1^(h1>>13))*3266489909
	return uint64(h2&0x1FFFFF)<<32 | uint64(h1)
}

// Seed32 reduces a 53-bit hash to the 32-bit state Mulberry32 operates on.
func Seed32(h uint64) uint32 {
	return uint32(h)
}

// MappingSeed returns the seed used to shuffle the substitution table for id.
func MappingSeed(id string) uint32 {
	return Seed32(Cyrb53(id, 0))
}

// NoiseSeed returns the seed used for the noise schedule of id.
func NoiseSeed(id string) uint32 {
	return Seed32(Cyrb53(id+NoiseSuffix, 0))
}

func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
