package helper

import (
	"strings"
)

var tfSeconds = map[string]int{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"1h":  3600,
}

// TFSeconds длина бара в секундах, как её ждёт мост в /candles.
func TFSeconds(tf string) (int, bool) {
	secs, ok := tfSeconds[tf]
	return secs, ok
}

// UpperSymbol тикер в верхнем регистре без пробелов по краям.
func UpperSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
