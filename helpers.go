package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"
)

func PrintTable(headers []string, rows [][]string, footers []string) {
	FprintTable(os.Stdout, headers, rows, footers)
}

// FprintTable pads every column to its widest cell. Rows longer than the
// header get extra columns.
func FprintTable(w io.Writer, headers []string, rows [][]string, footers []string) {
	var colWidths []int
	measure := func(cells []string) {
		for i, cell := range cells {
			if i >= len(colWidths) {
				colWidths = append(colWidths, 0)
			}
			if n := utf8.RuneCountInString(cell); n > colWidths[i] {
				colWidths[i] = n
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}
	measure(footers)

	printRow := func(cells []string) {
		for i, cell := range cells {
			fmt.Fprintf(w, "%s%*s\t", cell, colWidths[i]-utf8.RuneCountInString(cell), "")
		}
		fmt.Fprintln(w)
	}

	// print header
	printRow(headers)

	// print rows
	for _, row := range rows {
		printRow(row)
	}

	// print footer
	if len(footers) > 0 {
		printRow(footers)
	}
}

func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// Fingerprint is the hex sha256 of the file's contents.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// periodBounds returns the [start, end) range of the day, week, month or
// year containing now. Weeks start on Monday.
func periodBounds(period string, now time.Time) (time.Time, time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case "day":
		return midnight, midnight.AddDate(0, 0, 1), nil
	case "week":
		offset := (int(now.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	case "year":
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period: %s", period)
	}
}
