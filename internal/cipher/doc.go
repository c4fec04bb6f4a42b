// Package cipher implements the deterministic substitution-and-noise text
// obfuscation engine.
//
// # Overview
//
// A protocol ID is the only state. From it the package derives:
//   - a substitution table, by shuffling Alphabet with a Mulberry32 generator
//     seeded from Cyrb53(id)
//   - a noise schedule, from a second generator seeded from
//     Cyrb53(id + "_noise_layer"), plus a small rotating shift taken from the
//     ID's character codes
//
// The same ID always yields the same table and schedule, so nothing besides the
// ID ever needs to be stored. The scheme is obfuscation, not encryption.
//
// # Quick Start
//
//	table := cipher.DeriveMapping("k3yPhrase")
//	out := cipher.Encode("Meet at dawn", table, true, 1, "k3yPhrase")
//	in := cipher.Decode(out, table, 1, "k3yPhrase") // "Meetatdawn"
//
// Whitespace stripping is lossy: spaces are never restored on decode.
//
// # Legacy Preset
//
// LegacyID names a fixed table covering only A-Z and 0-9. Its digits '6' and '9'
// share a substitute; decoding that substitute yields '6'.
//
// # Operations
//
// The engine is also exposed as registered operations for pipelines:
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: cipher.OpEncode, Parameters: map[string]interface{}{
//	            "protocol_id": "k3yPhrase",
//	            "noise_level": 2,
//	        }},
//	    },
//	    Reversible: true,
//	}
//	encoded, _ := pipeline.Execute(ctx, []byte("payload"))
//	reversed, _ := pipeline.Reverse()
//	decoded, _ := reversed.Execute(ctx, encoded)
//
// # Thread Safety
//
// Encode, Decode and DeriveMapping are pure and safe for concurrent use; each
// call builds its own generators. The operation registry is guarded by a lock.
package cipher
