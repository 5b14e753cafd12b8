package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"lsr_dashboard/internal/models"
)

const SessionMarker = "Startup levels"

var (
	placePat  = regexp.MustCompile(`\[(\w+)\]\s+PLACING LIMIT ORDER:\s+(BUY|SELL)\s+\w+\s+@\s+([\d.]+)`)
	detailPat = regexp.MustCompile(`Expected R:R:\s+([\d.]+)R\s*\|\s*Setup:\s+(\S+)\s*\|\s*Session:\s+(\S+)\s*\|\s*Time:\s+([\d:]+)\s+PT`)
	exitPat   = regexp.MustCompile(`\[(\w+)\]\s+Trade logged.*?([+-]?[\d.]+)\s*ticks\s*\|\s*\$([+-]?[\d.]+)\s*\|\s*([+-]?[\d.]+)R`)
	cancelPat = regexp.MustCompile(`\[(\w+)\]\s+Canceling LIMIT order`)
)

// MalformedError строка совпала с грамматикой, но числовое поле не разобралось.
type MalformedError struct {
	Kind  string
	Field string
	Value string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s line: %s=%q", e.Kind, e.Field, e.Value)
}

// ParseLine: (nil, nil) если строка не из грамматики, (nil, *MalformedError) если битое число.
func ParseLine(line string) (Event, error) {
	if strings.Contains(line, SessionMarker) {
		return SessionStart{}, nil
	}

	if m := placePat.FindStringSubmatch(line); m != nil {
		price, err := number("entry", "price", m[3])
		if err != nil {
			return nil, err
		}
		return OrderPlaced{Symbol: m[1], Side: models.Side(m[2]), Price: price}, nil
	}

	// детали проверяются раньше выхода и отмены даже без ждущего входа:
	// строка "Expected R:R" не бывает одновременно "Trade logged" или "Canceling LIMIT"
	if m := detailPat.FindStringSubmatch(line); m != nil {
		rr, err := number("detail", "rr", m[1])
		if err != nil {
			return nil, err
		}
		return OrderDetail{ExpectedR: rr, Setup: m[2], Session: m[3], ClockTime: m[4]}, nil
	}

	if m := exitPat.FindStringSubmatch(line); m != nil {
		ticks, err := number("exit", "ticks", m[2])
		if err != nil {
			return nil, err
		}
		pnl, err := number("exit", "pnl", m[3])
		if err != nil {
			return nil, err
		}
		r, err := number("exit", "r", m[4])
		if err != nil {
			return nil, err
		}
		return OrderExit{Symbol: m[1], Ticks: ticks, PnL: pnl, RMultiple: r}, nil
	}

	if m := cancelPat.FindStringSubmatch(line); m != nil {
		return OrderCancel{Symbol: m[1]}, nil
	}

	return nil, nil
}

func number(kind, field, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &MalformedError{Kind: kind, Field: field, Value: raw}
	}
	return f, nil
}

// SplitLines режет по \n и срезает \r (лог пишется на Windows).
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// CurrentSession строки начиная с последнего маркера старта. Без маркера берётся всё окно.
func CurrentSession(lines []string) []string {
	start := 0
	for i, l := range lines {
		if strings.Contains(l, SessionMarker) {
			start = i
		}
	}
	return lines[start:]
}
