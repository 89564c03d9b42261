package cli

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any amount, FormatIndianCurrency should:
// 1. Start with the ₹ symbol (or -₹ for negative)
// 2. Have exactly 2 decimal places
// 3. Use Indian numbering (groups of 2 after the first 3 digits from right)
// 4. Preserve the numeric value when parsed back
func TestProperty_IndianCurrencyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatIndianCurrency produces valid Indian format", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return true
			}
			if math.Abs(amount) > 1e15 {
				return true
			}

			formatted := FormatIndianCurrency(amount)

			if amount >= 0 {
				if !strings.HasPrefix(formatted, "₹") {
					t.Logf("Expected ₹ prefix for %f, got %s", amount, formatted)
					return false
				}
			} else {
				if !strings.HasPrefix(formatted, "-₹") {
					t.Logf("Expected -₹ prefix for %f, got %s", amount, formatted)
					return false
				}
			}

			parts := strings.Split(formatted, ".")
			if len(parts) != 2 || len(parts[1]) != 2 {
				t.Logf("Expected 2 decimal places for %f, got %s", amount, formatted)
				return false
			}

			numPart := strings.TrimPrefix(formatted, "-")
			numPart = strings.TrimPrefix(numPart, "₹")
			numPart = strings.Split(numPart, ".")[0]

			indianPattern := regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)
			if !indianPattern.MatchString(numPart) {
				t.Logf("Invalid Indian format for %f: %s", amount, formatted)
				return false
			}

			return true
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatIndianCurrency preserves value", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return true
			}
			if math.Abs(amount) > 1e12 {
				return true
			}

			formatted := FormatIndianCurrency(amount)
			parsed := parseIndianCurrency(formatted)

			roundedAmount := math.Round(amount*100) / 100
			if math.Abs(parsed-roundedAmount) > 0.01 {
				t.Logf("Value not preserved: original=%f, formatted=%s, parsed=%f", amount, formatted, parsed)
				return false
			}
			return true
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("FormatPercent produces correct format", prop.ForAll(
		func(value float64) bool {
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return true
			}

			formatted := FormatPercent(value)
			if !strings.HasSuffix(formatted, "%") {
				return false
			}
			if value > 0 && !strings.HasPrefix(formatted, "+") {
				return false
			}
			return true
		},
		gen.Float64Range(-100, 100),
	))

	properties.Property("FormatCompact uses correct units", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return true
			}

			formatted := FormatCompact(amount)
			absAmount := math.Abs(amount)

			if absAmount >= 10000000 {
				return strings.Contains(formatted, "Cr")
			} else if absAmount >= 100000 {
				return strings.Contains(formatted, "L")
			}
			return strings.HasPrefix(formatted, "₹") || strings.HasPrefix(formatted, "-₹")
		},
		gen.Float64Range(-1e10, 1e10),
	))

	properties.Property("FormatVolume uses correct units", prop.ForAll(
		func(volume int64) bool {
			if volume < 0 {
				volume = -volume
			}

			formatted := FormatVolume(volume)

			if volume >= 10000000 {
				return strings.Contains(formatted, "Cr")
			} else if volume >= 100000 {
				return strings.Contains(formatted, "L")
			} else if volume >= 1000 {
				return strings.Contains(formatted, "K")
			}
			return true
		},
		gen.Int64Range(0, 1e12),
	))

	properties.TestingRun(t)
}

// parseIndianCurrency parses an Indian currency formatted string back to float64
func parseIndianCurrency(s string) float64 {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")

	var parsed float64
	for i, c := range s {
		if c == '.' {
			decPart := s[i+1:]
			for j, d := range decPart {
				if d >= '0' && d <= '9' {
					parsed += float64(d-'0') / math.Pow(10, float64(j+1))
				}
			}
			break
		}
		if c >= '0' && c <= '9' {
			parsed = parsed*10 + float64(c-'0')
		}
	}

	if negative {
		parsed = -parsed
	}
	return parsed
}

func TestIndianNumberFormatExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{1, "₹1.00"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},      // 1 lakh
		{1000000, "₹10,00,000.00"},    // 10 lakhs
		{10000000, "₹1,00,00,000.00"}, // 1 crore
		{-1234.56, "-₹1,234.56"},
		{12345678.90, "₹1,23,45,678.90"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatIndianCurrency(tc.amount)
			if result != tc.expected {
				t.Errorf("FormatIndianCurrency(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}

func TestFormatGexExamples(t *testing.T) {
	testCases := []struct {
		gex      float64
		expected string
	}{
		{25000000, "+2.50 Cr"},
		{-25000000, "-2.50 Cr"},
		{350000, "+3.50 L"},
		{-120, "-120"},
		{0, "+0"},
	}

	for _, tc := range testCases {
		result := FormatGex(tc.gex)
		if result != tc.expected {
			t.Errorf("FormatGex(%v) = %s, want %s", tc.gex, result, tc.expected)
		}
	}
}

func TestFormatIV(t *testing.T) {
	if got := FormatIV(0.185); got != "18.50%" {
		t.Errorf("FormatIV(0.185) = %s, want 18.50%%", got)
	}
}
