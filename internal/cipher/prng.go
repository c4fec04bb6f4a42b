package cipher

// Mulberry32 is a small seeded generator whose output stream is identical to
// the 32-bit reference implementation used by browser clients. Every protocol
// mapping and noise schedule is derived from it, so the arithmetic must stay
// bit-for-bit stable.
//
// A Mulberry32 is not safe for concurrent use. Callers construct a fresh
// instance per operation.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 creates a generator seeded with seed.
func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Uint32 advances the generator and returns the next raw 32-bit output.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Next returns the next value in [0, 1).
func (m *Mulberry32) Next() float64 {
	return float64(m.Uint32()) / 4294967296.0
}

// Intn returns floor(Next() * n). It returns 0 when n <= 0 without consuming
// state.
func (m *Mulberry32) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(m.Next() * float64(n))
}
