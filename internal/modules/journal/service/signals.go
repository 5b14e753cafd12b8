package service

import (
	"regexp"
	"strings"
)

// SignalFeedSize сколько строк отдаёт лента сигналов.
const SignalFeedSize = 30

var logPrefix = regexp.MustCompile(`^(INFO|WARNING|ERROR|DEBUG):\S+:`)

// шум, который трейдер пишет рядом с сигналами
var (
	noiseContains = []string{
		"LSR SCAN:",
		"Order will fill when price returns",
		"Order placed: {",
		"Order canceled: {",
		"LIMIT order placed, waiting for fill",
	}
	noisePrefixes = []string{
		"Placing order:",
		"{",
		"Canceling order None",
	}
)

// StripPrefix убирает "INFO:module:" в начале строки.
func StripPrefix(line string) string {
	return strings.TrimSpace(logPrefix.ReplaceAllString(line, ""))
}

// ReduceSignals чистит строки текущей сессии и отдаёт последние limit штук.
// Повтор подряд выкидывается, повтор через строку остаётся.
func ReduceSignals(lines []string, limit int) []string {
	if limit <= 0 {
		limit = SignalFeedSize
	}

	cleaned := make([]string, 0, len(lines))
	for _, raw := range CurrentSession(lines) {
		line := StripPrefix(raw)
		if line == "" || isNoise(line) {
			continue
		}
		if n := len(cleaned); n > 0 && cleaned[n-1] == line {
			continue
		}
		cleaned = append(cleaned, line)
	}

	if len(cleaned) > limit {
		cleaned = cleaned[len(cleaned)-limit:]
	}
	return cleaned
}

func isNoise(line string) bool {
	for _, s := range noiseContains {
		if strings.Contains(line, s) {
			return true
		}
	}
	for _, p := range noisePrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
