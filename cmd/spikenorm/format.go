package main

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var countPrinter = message.NewPrinter(language.English)

// formatCount renders a spike-in count with digit grouping, e.g. 1,234,567.
func formatCount(value float64, present bool) string {
	if !present {
		return "-"
	}
	return countPrinter.Sprint(number.Decimal(value, number.MaxFractionDigits(3)))
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
