package converter

const (
	// SmallFraction keeps images of 50 KB and less at their original budget.
	SmallFraction = 1.0
	// ReducedSmallFraction applies the 50-100 KB reduction to small images too.
	ReducedSmallFraction = 0.6
)

// Policy maps an original size to the size budget of its re-encoding.
type Policy struct {
	SmallFraction float64
}

func DefaultPolicy() Policy {
	return Policy{SmallFraction: SmallFraction}
}

// Fraction returns the share of the original size the output may use.
func (p Policy) Fraction(originalKB float64) float64 {
	switch {
	case originalKB <= 50:
		return p.SmallFraction
	case originalKB <= 100:
		return 0.6
	case originalKB <= 500:
		return 0.2
	default:
		return 0.1
	}
}

// Budget returns the target size in KB.
func (p Policy) Budget(originalKB float64) float64 {
	return originalKB * p.Fraction(originalKB)
}
