package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayouts are tried in order when parsing a date cell. Day and month
// may be written with or without a leading zero.
var DateLayouts = []string{"2/1/2006", "2006-1-2", "2-1-2006"}

var moneyReplacer = strings.NewReplacer("£", "", "$", "", "€", "", ",", "", " ", "")

// ParseMoney reads a decimal amount, ignoring currency symbols and thousands
// separators. Empty or invalid input yields zero.
func ParseMoney(s string) decimal.Decimal {
	s = moneyReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseQty reads a non-negative whole quantity. Anything else yields 1.
func ParseQty(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 1
		}
		return n
	}
	// Spreadsheets often store whole numbers as "2.0".
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == math.Trunc(f) && f <= math.MaxInt32 {
		return int(f)
	}
	return 1
}

// ParseDate reads a date in one of DateLayouts and falls back to today.
// When excelDates is set a bare number is read as a spreadsheet serial date.
func ParseDate(s string, today time.Time, excelDates bool) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return dateOnly(today)
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if excelDates {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return dateOnly(t)
			}
		}
	}
	return dateOnly(today)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
