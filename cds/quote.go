package cds

// Quote is a market quote for a CDS. Every quote carries the coupon the
// contract pays.
type Quote interface {
	Coupon() float64
}

// ParSpread quotes a contract whose coupon equals the par spread, so its
// upfront is zero.
type ParSpread struct {
	Spread float64
}

func (q ParSpread) Coupon() float64 { return q.Spread }

// QuotedSpread is a standard-coupon contract quoted by the flat-curve
// equivalent spread.
type QuotedSpread struct {
	Premium float64
	Spread  float64
}

func (q QuotedSpread) Coupon() float64 { return q.Premium }

// PointsUpFront is a standard-coupon contract quoted by upfront fraction of
// notional.
type PointsUpFront struct {
	Premium float64
	PUF     float64
}

func (q PointsUpFront) Coupon() float64 { return q.Premium }
