// Package costing derives stock levels and weighted-average unit costs
// from inventory log rows. The functions are pure: callers fetch the rows
// (non-voided, optionally bounded by an as-of cutoff) and pass them in.
package costing

import (
	"time"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Averages is a weighted-average unit cost. Defined is false when the
// summed quantity is zero, in which case the cost fields are zero and mean
// nothing.
type Averages struct {
	Defined  bool
	Gross    decimal.Decimal
	Net      decimal.Decimal
	Tax      decimal.Decimal
	TotalQty decimal.Decimal
}

// StockQty sums row quantities signed by their operation's stock effect.
// Voided rows must already be filtered out; rows with an unknown operation
// are skipped.
func StockQty(rows []domain.InventoryLogRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		effect, ok := domain.StockEffectFor(row.OperationCode)
		if !ok {
			continue
		}
		if effect == domain.StockEffectAdd {
			total = total.Add(row.Qty)
		} else {
			total = total.Sub(row.Qty)
		}
	}
	return total
}

// AverageUnitCost computes the quantity-weighted average gross, net and
// tax unit costs over the add-stock rows. Quantities 10 and 10 at costs 5
// and 7 average to exactly 6.
func AverageUnitCost(rows []domain.InventoryLogRow) Averages {
	totalQty := decimal.Zero
	grossSum := decimal.Zero
	netSum := decimal.Zero
	taxSum := decimal.Zero

	for _, row := range rows {
		effect, ok := domain.StockEffectFor(row.OperationCode)
		if !ok || effect != domain.StockEffectAdd {
			continue
		}
		totalQty = totalQty.Add(row.Qty)
		grossSum = grossSum.Add(row.UnitCost.Mul(row.Qty))
		netSum = netSum.Add(row.UnitCostNet.Mul(row.Qty))
		taxSum = taxSum.Add(row.UnitCostTax.Mul(row.Qty))
	}

	if totalQty.Sign() <= 0 {
		return Averages{}
	}

	return Averages{
		Defined:  true,
		Gross:    grossSum.Div(totalQty),
		Net:      netSum.Div(totalQty),
		Tax:      taxSum.Div(totalQty),
		TotalQty: totalQty,
	}
}

// SplitCost divides a gross unit cost into its net and tax parts for a
// percentage tax rate, with gross = net + tax holding exactly.
func SplitCost(gross decimal.Decimal, ratePercent decimal.Decimal) (net decimal.Decimal, tax decimal.Decimal) {
	if ratePercent.IsZero() {
		return gross, decimal.Zero
	}
	net = gross.Div(one.Add(ratePercent.Div(hundred)))
	tax = gross.Sub(net)
	return net, tax
}

// MonthStart returns midnight UTC on the first day of the month.
func MonthStart(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns the exclusive upper bound for a month, so rows
// "through end of June" are those with AdjustedAt < NextMonthStart(June).
func NextMonthStart(year int, month time.Month) time.Time {
	return MonthStart(year, month).AddDate(0, 1, 0)
}
