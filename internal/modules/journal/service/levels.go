package service

import (
	"regexp"

	"go.uber.org/zap"

	"lsr_dashboard/internal/models"
)

var levelsPat = regexp.MustCompile(`(\w{2})\s+LSR SCAN:\s+PDH=\$?([\d.]+)\s+PDL=\$?([\d.]+)\s+PDC=\$?([\d.]+)`)

// ParseLevels уровни прошлого дня по инструментам. Более поздняя строка
// переписывает значения, но символ остаётся на месте первого появления.
func ParseLevels(lines []string, log *zap.Logger) []models.Level {
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]models.Level, 0)
	index := make(map[string]int)

	for _, line := range lines {
		m := levelsPat.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		pdh, err1 := number("levels", "pdh", m[2])
		pdl, err2 := number("levels", "pdl", m[3])
		pdc, err3 := number("levels", "pdc", m[4])
		if err1 != nil || err2 != nil || err3 != nil {
			log.Warn("skipping malformed levels line", zap.String("line", line))
			continue
		}

		lvl := models.Level{Symbol: m[1], PDH: pdh, PDL: pdl, PDC: pdc}
		if i, ok := index[lvl.Symbol]; ok {
			out[i] = lvl
			continue
		}
		index[lvl.Symbol] = len(out)
		out = append(out, lvl)
	}
	return out
}
