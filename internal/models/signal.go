package models

import "time"

// Side как в раннере: "LONG"/"SHORT" или пустая строка.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Имена стратегий. Закрытый набор: добавление стратегии = новая константа
// плюс регистрация в фабрике, без динамического диспатча.
const (
	StrategyTripleEMA      = "triple_ema"
	StrategyBBSqueeze      = "bb_squeeze"
	StrategyBreakoutRetest = "breakout_retest"
	StrategyVWAPFade       = "vwap_fade"
	StrategyFastMACD       = "fast_macd"
	StrategyRangeScalp     = "range_scalp"
	StrategyKeltnerStoch   = "keltner_stoch"
	StrategyVWAPEMA        = "vwap_ema_confluence"
)

// RawCandidate — сырой кандидат от одной стратегии за один цикл.
// Живёт только внутри цикла, дальше идёт агрегатору.
type RawCandidate struct {
	InstID   string
	Strategy string
	Side     Side
	Entry    float64
	Score    float64 // качество 0..10, ниже порога стратегия вообще не отдаёт
	Context  map[string]float64
}

// Signal — финальный артефакт пайплайна. Не мутируется после сборки.
type Signal struct {
	InstID      string
	Side        Side
	Entry       float64
	Stop        float64
	Take        float64
	RR          float64
	Strategies  []string // победитель первым, дальше подтвердившие
	Score       float64
	GeneratedAt time.Time
}

// Label — короткая метка стратегии для уведомления.
func (s Signal) Label() string {
	if len(s.Strategies) == 0 {
		return "unknown"
	}
	out := s.Strategies[0]
	for _, extra := range s.Strategies[1:] {
		out += "+" + extra
	}
	return out
}

// Outcome — итог сигнала, резолвится по фиду цен.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeExpired Outcome = "expired"
)

// PerformanceRecord — запись append-only леджера. Outcome и RMultiple
// заполняются при резолве, сама запись никогда не удаляется.
type PerformanceRecord struct {
	ID         int64
	Signal     Signal
	Outcome    Outcome
	RMultiple  float64
	ResolvedAt time.Time
}
