// Package pcgrand implements the PCG-XSH-RR 32-bit generator
// (pcg-random.org), used to fill the per-entry AES salt. A
// math/rand-backed source would work just as well for salt generation,
// but the original format ties its test vectors to PCG's exact output
// sequence, so the generator is reproduced rather than substituted.
//
// Grounded on original_source/nyaszip.hpp's PCG_XSH_RR, with the
// Read([]byte)(int,error) surface shaped after
// other_examples/buildbarn-bb-storage's pkg/random generator interface.
package pcgrand

const (
	multiplier uint64 = 6364136223846793005
	increment  uint64 = 1442695040888963407
)

// Source is a PCG-XSH-RR pseudo-random generator producing a stream of
// 32-bit outputs, exposed byte-wise through Read.
type Source struct {
	state   uint64
	pending []byte
}

// New seeds a Source the way the reference generator does: state is
// advanced once from (seed + increment) before the first output, matching
// pcg_setseq_64_srandom_r.
func New(seed uint64) *Source {
	s := &Source{}
	s.state = 0
	s.step()
	s.state += seed
	s.step()
	return s
}

func (s *Source) step() {
	s.state = s.state*multiplier + increment
}

// Uint32 returns the next 32-bit output in the sequence.
func (s *Source) Uint32() uint32 {
	oldState := s.state
	s.step()

	xorShifted := uint32(((oldState >> 18) ^ oldState) >> 27)
	rot := uint(oldState >> 59)
	return (xorShifted >> rot) | (xorShifted << ((-rot) & 31))
}

// Read fills p with output bytes from the generator. It never errors and
// always fills p completely, satisfying io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	n := len(p)
	for len(p) != 0 {
		if len(s.pending) == 0 {
			v := s.Uint32()
			s.pending = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		}
		c := copy(p, s.pending)
		p = p[c:]
		s.pending = s.pending[c:]
	}
	return n, nil
}
