package service

import (
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// FastMACD — быстрый MACD с переворотом гистограммы плюс RSI-фильтр.
type FastMACD struct {
	p config.StrategyParams
}

func NewFastMACD(p config.StrategyParams) *FastMACD { return &FastMACD{p: p} }

func (s *FastMACD) Name() string { return models.StrategyFastMACD }

func (s *FastMACD) Evaluate(w MarketView) (models.RawCandidate, bool) {
	closes := models.Closes(w.Fast)
	if len(closes) < s.p.FastMACDSlow+s.p.FastMACDSignal+10 {
		return models.RawCandidate{}, false
	}

	macdLine, signalLine, hist := indicator.MACD(closes,
		s.p.FastMACDFast, s.p.FastMACDSlow, s.p.FastMACDSignal)
	rsiVals := indicator.RSI(closes, s.p.RSIWindow)

	lastMACD := indicator.Last(macdLine)
	lastSignal := indicator.Last(signalLine)
	lastHist := indicator.Last(hist)
	prevHist := indicator.At(hist, 1)
	lastRSI := indicator.Last(rsiVals)
	if !indicator.Defined(lastMACD) || !indicator.Defined(lastSignal) ||
		!indicator.Defined(lastHist) || !indicator.Defined(prevHist) ||
		!indicator.Defined(lastRSI) {
		return models.RawCandidate{}, false
	}

	lastClose := closes[len(closes)-1]

	ctx := map[string]float64{
		"macd":      lastMACD,
		"signal":    lastSignal,
		"histogram": lastHist,
		"rsi":       lastRSI,
	}

	// Лонг: MACD выше сигнальной, гистограмма перевернулась в плюс
	if lastMACD > lastSignal && lastHist > 0 && prevHist <= 0 &&
		lastRSI > 45 && lastRSI < 75 {
		score := 7.0
		if lastMACD > 0 {
			score++ // переворот выше нулевой линии
		}
		if lastRSI > 50 && lastRSI < 70 {
			score++
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideLong,
			Entry:    lastClose,
			Score:    score,
			Context:  ctx,
		})
	}

	// Шорт: зеркально, переворот в минус
	if lastMACD < lastSignal && lastHist < 0 && prevHist >= 0 &&
		lastRSI < 55 && lastRSI > 25 {
		score := 7.0
		if lastMACD < 0 {
			score++
		}
		if lastRSI < 50 && lastRSI > 30 {
			score++
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideShort,
			Entry:    lastClose,
			Score:    score,
			Context:  ctx,
		})
	}

	return models.RawCandidate{}, false
}
