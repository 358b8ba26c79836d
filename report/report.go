// Package report parses raw diagnostic output into structured results and
// renders structured results as stable, human-readable text reports.
//
// Everything here is pure: no I/O, no clocks, no globals that change.
package report

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Display caps shared by several reports.
const (
	MaxBodyChars   = 1000
	MaxHeaderLines = 10
	MaxWhoisLines  = 20
	MaxConnections = 20
	MaxProbeLines  = 5
)

// Failure renders the text returned when every strategy of an operation failed.
func Failure(operation, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return "❌ " + operation + " failed: " + message
}

// Truncate cuts s to at most n characters, appending "..." when it cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func lines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(strings.TrimSpace(raw), "\n")
}
