// Package irm implements the interest-rate model: a piecewise-linear
// utilization-to-borrow-rate lookup curve. It is grounded on the teacher's
// native/lending/interest.go InterestModel (struct-with-Clone, pure lookup
// functions over big-precision numbers) but generalizes the teacher's
// two-slope/kink shape into the sampled N-point curve the domain calls for.
package irm

import (
	"fmt"

	"texturelend/decimal"
)

// MaxSamples bounds the number of points a Curve may carry.
const MaxSamples = 16

// Curve is a piecewise-linear function y(x) over x in [0,1] (utilization),
// defined by a starting point X0, a fixed step Delta, and N sample points.
// For x <= X0 the curve returns Samples[0]; for x >= X0+(N-1)*Delta it
// returns the last sample; otherwise it linearly interpolates between the
// two bracketing samples.
type Curve struct {
	ID      uint64
	X0      decimal.Dec
	Delta   decimal.Dec
	Samples []decimal.Dec
}

// Clone returns a deep copy of the curve.
func (c *Curve) Clone() *Curve {
	if c == nil {
		return nil
	}
	samples := make([]decimal.Dec, len(c.Samples))
	copy(samples, c.Samples)
	return &Curve{ID: c.ID, X0: c.X0, Delta: c.Delta, Samples: samples}
}

// New validates and constructs a Curve.
func New(id uint64, x0, delta decimal.Dec, samples []decimal.Dec) (*Curve, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("irm: curve needs at least one sample")
	}
	if len(samples) > MaxSamples {
		return nil, fmt.Errorf("irm: curve has %d samples, max is %d", len(samples), MaxSamples)
	}
	if delta.Sign() < 0 {
		return nil, fmt.Errorf("irm: delta must be non-negative")
	}
	for i, s := range samples {
		if s.Sign() < 0 {
			return nil, fmt.Errorf("irm: sample %d is negative", i)
		}
	}
	return &Curve{ID: id, X0: x0, Delta: delta, Samples: append([]decimal.Dec(nil), samples...)}, nil
}

// BorrowRate evaluates the curve at utilization x, returning an annualized
// Q18 borrow rate. x is clamped into the curve's domain before lookup.
func (c *Curve) BorrowRate(x decimal.Dec) (decimal.Dec, error) {
	if c == nil || len(c.Samples) == 0 {
		return decimal.Zero(), fmt.Errorf("irm: curve has no samples")
	}
	if len(c.Samples) == 1 {
		return c.Samples[0], nil
	}
	if x.Cmp(c.X0) <= 0 {
		return c.Samples[0], nil
	}
	n := len(c.Samples)
	// domainEnd = X0 + (n-1)*Delta
	span, err := c.Delta.Mul(decimal.FromInt64(int64(n - 1)))
	if err != nil {
		return decimal.Zero(), err
	}
	domainEnd, err := c.X0.Add(span)
	if err != nil {
		return decimal.Zero(), err
	}
	if x.Cmp(domainEnd) >= 0 {
		return c.Samples[n-1], nil
	}
	if c.Delta.IsZero() {
		return c.Samples[n-1], nil
	}

	// offset = x - X0; index = floor(offset/Delta)
	offset, err := x.Sub(c.X0)
	if err != nil {
		return decimal.Zero(), err
	}
	idxDec, err := offset.Div(c.Delta)
	if err != nil {
		return decimal.Zero(), err
	}
	idx := idxDec.ToFloor(0).Int64()
	if idx < 0 {
		idx = 0
	}
	if int(idx) >= n-1 {
		return c.Samples[n-1], nil
	}

	lowerX, err := c.X0.Add(mustMul(c.Delta, decimal.FromInt64(idx)))
	if err != nil {
		return decimal.Zero(), err
	}
	frac, err := x.Sub(lowerX)
	if err != nil {
		return decimal.Zero(), err
	}
	ratio, err := frac.Div(c.Delta)
	if err != nil {
		return decimal.Zero(), err
	}
	y0 := c.Samples[idx]
	y1 := c.Samples[idx+1]
	diff, err := y1.Sub(y0)
	if err != nil {
		return decimal.Zero(), err
	}
	inc, err := diff.Mul(ratio)
	if err != nil {
		return decimal.Zero(), err
	}
	return y0.Add(inc)
}

func mustMul(a, b decimal.Dec) decimal.Dec {
	v, err := a.Mul(b)
	if err != nil {
		return decimal.Zero()
	}
	return v
}
