// Package pricing computes quote and estimate totals.
//
// All arithmetic runs on decimals and every stored amount is rounded to cents
// (half away from zero). Grand totals are sums of already-rounded parts and are
// never rounded again, so they are exact to the cent.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diewo77/procurement/internal/models"
	"github.com/diewo77/procurement/validation"
)

// MinHourlyQuantity is the smallest billable quantity of an hourly line.
const MinHourlyQuantity = 0.1

// Line is the priced part of a quote or estimate item.
type Line struct {
	Unit      models.ItemUnit
	UnitPrice float64
	Quantity  float64
}

// QuoteTotals is the result of ComputeQuote. LinePrices is index-aligned with the input.
type QuoteTotals struct {
	LinePrices  []float64 `json:"linePrices"`
	NetPrice    float64   `json:"netPrice"`
	TaxRate     float64   `json:"taxRate"`
	TaxAmount   float64   `json:"taxAmount"`
	DeliveryFee float64   `json:"deliveryFee"`
	TotalPrice  float64   `json:"totalPrice"`
}

// EstimateTotals is the result of ComputeEstimate.
type EstimateTotals struct {
	LinePrices        []float64 `json:"linePrices"`
	Subtotal          float64   `json:"subtotal"`
	Discount          float64   `json:"discount"`
	Total             float64   `json:"total"`
	DepositPercentage float64   `json:"depositPercentage"`
	DepositAmount     float64   `json:"depositAmount"`
}

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// LinePrice is round2(unitPrice × quantity).
func LinePrice(l Line) float64 {
	return round2(dec(l.UnitPrice).Mul(dec(l.Quantity))).InexactFloat64()
}

func sumLines(lines []Line) ([]float64, decimal.Decimal) {
	prices := make([]float64, len(lines))
	sum := decimal.Zero
	for i, l := range lines {
		p := round2(dec(l.UnitPrice).Mul(dec(l.Quantity)))
		prices[i] = p.InexactFloat64()
		sum = sum.Add(p)
	}
	return prices, sum
}

// ComputeQuote prices lines and applies tax and delivery.
// Inputs are expected to have passed ValidateLines and ValidateQuote.
func ComputeQuote(lines []Line, taxRate, deliveryFee float64) QuoteTotals {
	prices, net := sumLines(lines)
	tax := round2(net.Mul(dec(taxRate)))
	fee := round2(dec(deliveryFee))
	return QuoteTotals{
		LinePrices:  prices,
		NetPrice:    net.InexactFloat64(),
		TaxRate:     taxRate,
		TaxAmount:   tax.InexactFloat64(),
		DeliveryFee: fee.InexactFloat64(),
		TotalPrice:  net.Add(tax).Add(fee).InexactFloat64(),
	}
}

// ComputeEstimate prices lines, subtracts the discount with a floor at zero and
// derives the informational deposit amount.
func ComputeEstimate(lines []Line, discount float64, depositRequired bool, depositPercentage float64) EstimateTotals {
	prices, subtotal := sumLines(lines)
	disc := round2(dec(discount))
	total := subtotal.Sub(disc)
	if total.IsNegative() {
		total = decimal.Zero
	}
	out := EstimateTotals{
		LinePrices: prices,
		Subtotal:   subtotal.InexactFloat64(),
		Discount:   disc.InexactFloat64(),
		Total:      total.InexactFloat64(),
	}
	if depositRequired {
		out.DepositPercentage = depositPercentage
		out.DepositAmount = round2(total.Mul(dec(depositPercentage)).Div(hundred)).InexactFloat64()
	}
	return out
}

// ValidateLines checks every line; field names are prefixed with prefix,
// e.g. "quoteItems[2].quantity".
func ValidateLines(prefix string, lines []Line, v validation.Violations) {
	for i, l := range lines {
		field := func(name string) string { return fmt.Sprintf("%s[%d].%s", prefix, i, name) }
		switch l.Unit {
		case models.UnitFlat, models.UnitHourly:
		default:
			v.Add(field("unit"), "invalid_choice")
		}
		validation.NonNegativeFloat(field("unitPrice"), l.UnitPrice, v)
		if l.Unit == models.UnitHourly {
			validation.MinFloat(field("quantity"), l.Quantity, MinHourlyQuantity, v)
		} else {
			validation.NonNegativeFloat(field("quantity"), l.Quantity, v)
		}
	}
}

// ValidateEstimate checks discount and deposit inputs.
func ValidateEstimate(discount float64, depositRequired bool, depositPercentage float64, v validation.Violations) {
	validation.NonNegativeFloat("discount", discount, v)
	if depositRequired {
		validation.RangeFloat("depositPercentage", depositPercentage, 0, 100, v)
	}
}
