package pricing

import (
	"errors"
	"math"
	"sort"
)

// CustomLocation marks a tax rate entered by hand.
const CustomLocation = "custom"

// TaxTolerance is how far a manual rate may drift from the table value before
// the location is considered overridden.
const TaxTolerance = 1e-5

var (
	ErrUnknownLocation = errors.New("unknown tax location")
	ErrTaxRateRange    = errors.New("tax rate must be in [0, 1)")
)

// TaxRate is one entry of the sales-tax table.
type TaxRate struct {
	Location string  `json:"location"`
	Rate     float64 `json:"rate"`
}

// Combined state + local sales tax, keyed "City, ST".
var taxTable = map[string]float64{
	"Atlanta, GA":       0.089,
	"Austin, TX":        0.0825,
	"Boston, MA":        0.0625,
	"Chicago, IL":       0.1025,
	"Dallas, TX":        0.0825,
	"Denver, CO":        0.0881,
	"Houston, TX":       0.0825,
	"Las Vegas, NV":     0.08375,
	"Los Angeles, CA":   0.095,
	"Miami, FL":         0.07,
	"Minneapolis, MN":   0.08025,
	"Nashville, TN":     0.0925,
	"New York, NY":      0.08875,
	"Philadelphia, PA":  0.08,
	"Phoenix, AZ":       0.086,
	"Portland, OR":      0,
	"San Diego, CA":     0.0775,
	"San Francisco, CA": 0.08625,
	"Seattle, WA":       0.1035,
	"Washington, DC":    0.06,
}

// LookupTaxRate returns the table rate for a location.
func LookupTaxRate(location string) (float64, bool) {
	r, ok := taxTable[location]
	return r, ok
}

// TaxRates lists the table sorted by location.
func TaxRates() []TaxRate {
	out := make([]TaxRate, 0, len(taxTable))
	for loc, r := range taxTable {
		out = append(out, TaxRate{Location: loc, Rate: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// ResolveTaxRate decides the effective location and rate of a quote.
//
//   - known location, no manual rate: the table rate;
//   - known location and a manual rate within TaxTolerance: location kept, table rate;
//   - known location and a manual rate further away: "custom" with the manual rate;
//   - no location or "custom": the manual rate ("custom" when it is non-zero).
func ResolveTaxRate(location string, manual *float64) (string, float64, error) {
	if manual != nil && (*manual < 0 || *manual >= 1 || math.IsNaN(*manual)) {
		return "", 0, ErrTaxRateRange
	}
	if location == "" || location == CustomLocation {
		if manual == nil || *manual == 0 {
			if location == CustomLocation && manual != nil {
				return CustomLocation, 0, nil
			}
			return "", 0, nil
		}
		return CustomLocation, *manual, nil
	}
	tableRate, ok := taxTable[location]
	if !ok {
		return "", 0, ErrUnknownLocation
	}
	if manual == nil || math.Abs(*manual-tableRate) <= TaxTolerance {
		return location, tableRate, nil
	}
	return CustomLocation, *manual, nil
}
