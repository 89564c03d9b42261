package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/kangrills/nifty-expiry-predictor/pkg/utils"
)

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
func FormatIndianCurrency(amount float64) string {
	return utils.FormatIndianCurrency(amount)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	return utils.FormatPercent(value)
}

// FormatQuantity formats a quantity with Indian numbering.
func FormatQuantity(qty int64) string {
	return utils.FormatQuantity(qty)
}

// FormatCompact formats a number in compact form (L/Cr).
func FormatCompact(amount float64) string {
	return utils.FormatCompact(amount)
}

// FormatVolume formats volume in compact form.
func FormatVolume(volume int64) string {
	if volume >= 10000000 { // 1 crore
		return fmt.Sprintf("%.2f Cr", float64(volume)/10000000)
	} else if volume >= 100000 { // 1 lakh
		return fmt.Sprintf("%.2f L", float64(volume)/100000)
	} else if volume >= 1000 {
		return fmt.Sprintf("%.2f K", float64(volume)/1000)
	}
	return fmt.Sprintf("%d", volume)
}

// FormatPrice formats a price with appropriate decimal places.
func FormatPrice(price float64) string {
	if price >= 10 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatGreeks formats option Greeks.
func FormatGreeks(delta, gamma, theta, vega float64) string {
	return fmt.Sprintf("Δ: %.4f  Γ: %.6f  Θ: %.2f  ν: %.2f", delta, gamma, theta, vega)
}

// FormatIV formats implied volatility as a percentage.
func FormatIV(iv float64) string {
	return fmt.Sprintf("%.2f%%", iv*100)
}

// FormatOI formats open interest.
func FormatOI(oi int64) string {
	return FormatVolume(oi)
}

// FormatPCR formats put-call ratio.
func FormatPCR(pcr float64) string {
	return fmt.Sprintf("%.2f", pcr)
}

// FormatGex formats a gamma exposure value in compact notional units.
func FormatGex(gex float64) string {
	abs := math.Abs(gex)
	switch {
	case abs >= 1e7:
		return fmt.Sprintf("%+.2f Cr", gex/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("%+.2f L", gex/1e5)
	default:
		return fmt.Sprintf("%+.0f", gex)
	}
}

// FormatTime formats a time in IST.
func FormatTime(t time.Time) string {
	return t.In(utils.ISTLocation()).Format("15:04:05")
}

// FormatDate formats a date.
func FormatDate(t time.Time) string {
	return t.In(utils.ISTLocation()).Format("02-Jan-2006")
}

// FormatDateTime formats a datetime.
func FormatDateTime(t time.Time) string {
	return t.In(utils.ISTLocation()).Format("02-Jan-2006 15:04:05")
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
