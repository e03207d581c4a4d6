package crdt

import "math/big"

// Position is a reduced rational (signed numerator over unsigned
// denominator) locating a List element between its neighbors without
// renumbering (spec.md §3.3). The element space is the open interval
// (0, 1); Den is always > 0 and gcd(|Num|, Den) == 1.
type Position struct {
	Num int64
	Den uint64
}

// StartBoundary and EndBoundary are the two fixed endpoints positions are
// generated between; they are never themselves assigned to an element.
var (
	StartBoundary = Position{Num: 0, Den: 1}
	EndBoundary   = Position{Num: 1, Den: 1}
)

func newPositionFromRat(r *big.Rat) Position {
	num := r.Num()
	den := r.Denom()
	return Position{Num: num.Int64(), Den: den.Uint64()}
}

func (p Position) rat() *big.Rat {
	return new(big.Rat).SetFrac(big.NewInt(p.Num), new(big.Int).SetUint64(p.Den))
}

// Compare returns -1, 0, or 1 as p is less than, equal to, or greater than
// other, comparing as rationals (cross-multiplication, no float rounding).
func (p Position) Compare(other Position) int {
	return p.rat().Cmp(other.rat())
}

// Between returns a position p such that l < p < r, given l < r. Passing a
// nil bound uses the corresponding fixed boundary. The result is the
// arithmetic mean of the two bounds, which is always strictly between two
// distinct rationals and keeps the fraction in reduced form.
func Between(l, r *Position) Position {
	lr := StartBoundary.rat()
	if l != nil {
		lr = l.rat()
	}
	rr := EndBoundary.rat()
	if r != nil {
		rr = r.rat()
	}
	sum := new(big.Rat).Add(lr, rr)
	mid := sum.Quo(sum, big.NewRat(2, 1))
	return newPositionFromRat(mid)
}
