package helper

import (
	"fmt"
	"math"
	"strings"
	"time"
)

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "15m":
		return "15m"
	case "5m":
		return "5m"
	default:
		return s
	}
}

// CooldownKey — ключ кулдауна по паре инструмент+стратегия.
func CooldownKey(instID, strategy string) string { return instID + ":" + strategy }

// FormatPrice — цена в точности котировки инструмента: крупные тикеры 4 знака,
// мелкие 6 (как в шаблоне уведомления).
func FormatPrice(v float64) string {
	if v >= 1 {
		return fmt.Sprintf("%.4f", v)
	}
	return fmt.Sprintf("%.6f", v)
}

// FormatRR — R:R одним знаком после запятой.
func FormatRR(rr float64) string { return fmt.Sprintf("%.1f", rr) }

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

func TimeframeToDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	default:
		return 15 * time.Minute
	}
}
