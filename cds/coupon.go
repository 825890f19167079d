package cds

import (
	"time"

	"github.com/meenmo/cdslib/utils"
)

// Coupon is one premium period expressed as ACT/365F times from the trade
// date. It is a plain comparable value, so identical periods shared by
// several contracts compare equal and can key a map.
type Coupon struct {
	EffStart    float64 // effective accrual start (protection start)
	EffEnd      float64 // effective accrual end
	PaymentTime float64
	YearFrac    float64 // accrual year fraction in the accrual day count
	YFRatio     float64 // YearFrac over the curve day count year fraction
}

// NewCoupon converts a dated accrual period into a Coupon. With protection
// from the start of day, the effective start and end are one day earlier.
func NewCoupon(tradeDate, accStart, accEnd, paymentDate time.Time, protectionFromStartOfDay bool, accrualDC string) Coupon {
	effStart, effEnd := accStart, accEnd
	if protectionFromStartOfDay {
		effStart = accStart.AddDate(0, 0, -1)
		effEnd = accEnd.AddDate(0, 0, -1)
	}
	yearFrac := utils.YearFraction(accStart, accEnd, accrualDC)
	return Coupon{
		EffStart:    utils.YearFraction(tradeDate, effStart, utils.Act365F),
		EffEnd:      utils.YearFraction(tradeDate, effEnd, utils.Act365F),
		PaymentTime: utils.YearFraction(tradeDate, paymentDate, utils.Act365F),
		YearFrac:    yearFrac,
		YFRatio:     yearFrac / utils.YearFraction(accStart, accEnd, utils.Act365F),
	}
}

// WithOffset moves the time origin forward by offset years.
func (c Coupon) WithOffset(offset float64) Coupon {
	c.EffStart -= offset
	c.EffEnd -= offset
	c.PaymentTime -= offset
	return c
}
