// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatIndianCurrency formats a number in Indian currency format (lakhs, crores).
func FormatIndianCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	// Format with 2 decimal places
	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	// Apply Indian numbering system
	formatted := FormatIndianNumber(intPart)

	result := "₹" + formatted + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// FormatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func FormatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right (hundreds)
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2 (thousands, lakhs, crores)
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatQuantity formats a quantity with Indian numbering.
func FormatQuantity(qty int64) string {
	if qty < 0 {
		return "-" + FormatIndianNumber(fmt.Sprintf("%d", -qty))
	}
	return FormatIndianNumber(fmt.Sprintf("%d", qty))
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	lakhs := amount / 100000
	if lakhs < 0 {
		return fmt.Sprintf("-%.2f L", -lakhs)
	}
	return fmt.Sprintf("%.2f L", lakhs)
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	crores := amount / 10000000
	if crores < 0 {
		return fmt.Sprintf("-%.2f Cr", -crores)
	}
	return fmt.Sprintf("%.2f Cr", crores)
}

// FormatCompact formats a number in compact form (L/Cr).
func FormatCompact(amount float64) string {
	absAmount := math.Abs(amount)

	if absAmount >= 10000000 { // 1 crore
		return FormatCrores(amount)
	} else if absAmount >= 100000 { // 1 lakh
		return FormatLakhs(amount)
	}
	return FormatIndianCurrency(amount)
}
