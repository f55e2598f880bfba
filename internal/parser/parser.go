// Package parser turns raw lines of dbt console output into monitor events.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reset is the color-reset escape dbt writes at the head of every fresh log
// record, either before the timestamp or right after it. Lines without it
// continue the previous record.
const Reset = "\033[0m"

// colorCodes are the escapes removed before a line is matched.
var colorCodes = []string{
	Reset,
	"\033[31m", // red
	"\033[32m", // green
	"\033[33m", // yellow
}

// statusMarkers identify lines that report a task status.
var statusMarkers = []string{"[RUN", "[SUCCESS", "[ERROR", "[SKIP"}

const timestampWidth = 8

// Parse classifies one raw line.
//
// Malformed numeric fields return a *ParseError; callers are expected to
// print the raw line as a continuation in that case.
func Parse(line string) (Event, error) {
	if !isRecord(line) {
		return Continuation{Text: line}, nil
	}

	stripped := StripColors(line)
	if len(stripped) < timestampWidth || !validTimestamp(stripped[:timestampWidth]) {
		return nil, &ParseError{Line: line, Field: "timestamp", Reason: "expected HH:MM:SS"}
	}
	timestamp := stripped[:timestampWidth]

	if !hasStatusMarker(stripped) {
		return PassThrough{Timestamp: timestamp, Text: stripped[timestampWidth:]}, nil
	}

	body := strings.TrimLeft(stripped[timestampWidth:], " ")

	message, status, found := strings.Cut(body, "[")
	if !found {
		return nil, &ParseError{Line: line, Field: "status", Reason: "missing '['"}
	}
	status = strings.TrimSpace(status)
	status = strings.TrimSuffix(status, "]")

	header, err := parseHeader(line, message)
	if err != nil {
		return nil, err
	}
	header.Timestamp = timestamp

	fields := strings.Fields(status)
	switch {
	case len(fields) == 1 && fields[0] == "RUN":
		return Started(header), nil

	case len(fields) == 1 && fields[0] == "SKIP":
		return Skipped(header), nil

	case len(fields) == 3 && fields[0] == "ERROR" && fields[1] == "in":
		runtime, err := parseRuntime(line, fields[2])
		if err != nil {
			return nil, err
		}
		return Finished{Header: header, Outcome: Error{Runtime: runtime}}, nil

	case len(fields) == 4 && fields[0] == "SUCCESS" && fields[2] == "in":
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, &ParseError{Line: line, Field: "exit code", Reason: err.Error()}
		}
		runtime, err := parseRuntime(line, fields[3])
		if err != nil {
			return nil, err
		}
		return Finished{Header: header, Outcome: Success{ExitCode: code, Runtime: runtime}}, nil

	default:
		return Unrecognized{Timestamp: timestamp, Status: status}, nil
	}
}

// StripColors removes the color escapes dbt uses from a line.
func StripColors(line string) string {
	for _, code := range colorCodes {
		line = strings.ReplaceAll(line, code, "")
	}
	return line
}

func isRecord(line string) bool {
	if strings.HasPrefix(line, Reset) {
		return true
	}
	return len(line) >= timestampWidth+len(Reset) &&
		line[timestampWidth:timestampWidth+len(Reset)] == Reset
}

func validTimestamp(ts string) bool {
	for i := 0; i < len(ts); i++ {
		switch i {
		case 2, 5:
			if ts[i] != ':' {
				return false
			}
		default:
			if ts[i] < '0' || ts[i] > '9' {
				return false
			}
		}
	}
	return true
}

func hasStatusMarker(line string) bool {
	for _, marker := range statusMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// parseHeader decomposes "<id> of <total> <description...>".
func parseHeader(line, message string) (Header, error) {
	fields := strings.Fields(message)
	if len(fields) < 3 {
		return Header{}, &ParseError{Line: line, Field: "progress", Reason: "expected '<id> of <total>'"}
	}
	if fields[1] != "of" {
		return Header{}, &ParseError{Line: line, Field: "progress", Reason: fmt.Sprintf("expected 'of', got %q", fields[1])}
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Header{}, &ParseError{Line: line, Field: "id", Reason: err.Error()}
	}
	total, err := strconv.Atoi(fields[2])
	if err != nil {
		return Header{}, &ParseError{Line: line, Field: "total", Reason: err.Error()}
	}

	return Header{
		ID:          id,
		Total:       total,
		Description: strings.Join(fields[3:], " "),
	}, nil
}

// parseRuntime reads values of the form "5.00s". Only finite,
// non-negative values are accepted.
func parseRuntime(line, value string) (float64, error) {
	runtime, err := strconv.ParseFloat(strings.TrimSuffix(value, "s"), 64)
	if err != nil {
		return 0, &ParseError{Line: line, Field: "runtime", Reason: err.Error()}
	}
	if math.IsNaN(runtime) || math.IsInf(runtime, 0) || runtime < 0 {
		return 0, &ParseError{Line: line, Field: "runtime", Reason: fmt.Sprintf("invalid duration %q", value)}
	}
	return runtime, nil
}
