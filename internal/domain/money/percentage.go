package money

import "github.com/go-faster/errors"

// ErrPercentageRange is returned when a percentage lies outside 0-100.
var ErrPercentageRange = errors.New("percentage out of range [0, 100]")

// Percentage is an integer percentage bounded to [0, 100]. Values outside
// that range are a programming or storage error, never a domain condition.
type Percentage int

// NewPercentage validates v and returns it as a Percentage.
func NewPercentage(v int) (Percentage, error) {
	if v < 0 || v > 100 {
		return 0, errors.Wrapf(ErrPercentageRange, "value %d", v)
	}
	return Percentage(v), nil
}

// MustPercentage returns v as a Percentage, panicking when out of range.
// Reserved for values the caller has already proven valid; a panic here
// means corrupted state, not bad input.
func MustPercentage(v int) Percentage {
	p, err := NewPercentage(v)
	if err != nil {
		panic(err)
	}
	return p
}

// Int returns the percentage as a plain int.
func (p Percentage) Int() int { return int(p) }

// Complement returns 100 - p.
func (p Percentage) Complement() Percentage { return 100 - p }
