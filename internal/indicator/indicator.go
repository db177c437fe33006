// Package indicator — чистые функции над окном свечей.
// Все серии выровнены по длине входа; значения до прогрева = NaN.
// NaN — явный маркер "не определено", стратегии обязаны проверять Defined,
// подставлять ноль вместо NaN нельзя.
package indicator

import (
	"math"

	"signal_bot/internal/models"
)

func undef() float64 { return math.NaN() }

// Defined — значение прошло прогрев.
func Defined(v float64) bool { return !math.IsNaN(v) }

// Last — последнее значение серии, NaN для пустой.
func Last(s []float64) float64 {
	if len(s) == 0 {
		return undef()
	}
	return s[len(s)-1]
}

// At — значение с конца: At(s, 0) == Last(s), At(s, 1) — предыдущее.
func At(s []float64, back int) float64 {
	i := len(s) - 1 - back
	if i < 0 {
		return undef()
	}
	return s[i]
}

// SMA — скользящее среднее, NaN пока окно не заполнено.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = undef()
		}
		return out
	}
	acc := 0.0
	for i, v := range values {
		acc += v
		if i >= period {
			acc -= values[i-period]
		}
		if i >= period-1 {
			out[i] = acc / float64(period)
		} else {
			out[i] = undef()
		}
	}
	return out
}

// EMA с посевом SMA первых period значений: до индекса period-1 NaN,
// на period-1 простое среднее, дальше рекуррентно.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period {
		for i := range out {
			out[i] = undef()
		}
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	acc := 0.0
	for i := 0; i < period-1; i++ {
		acc += values[i]
		out[i] = undef()
	}
	acc += values[period-1]
	prev := acc / float64(period)
	out[period-1] = prev
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// RSI по EMA выигрышей/проигрышей. Undefined пока нет прогрева
// или пока средний проигрыш нулевой.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = undef()
	}
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		chg := closes[i] - closes[i-1]
		gains[i] = math.Max(chg, 0)
		losses[i] = math.Max(-chg, 0)
	}
	avgGain := EMA(gains, period)
	avgLoss := EMA(losses, period)
	for i := range closes {
		g, l := avgGain[i], avgLoss[i]
		if !Defined(g) || !Defined(l) || l == 0 {
			continue
		}
		rs := g / l
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}

// MACD: линия, сигнальная, гистограмма. Сигнальная считается только по
// определённой части линии, без подстановки нулей в прогрев.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line = make([]float64, n)
	sig = make([]float64, n)
	hist = make([]float64, n)
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	firstDef := -1
	for i := 0; i < n; i++ {
		f, s := emaFast[i], emaSlow[i]
		if Defined(f) && Defined(s) {
			line[i] = f - s
			if firstDef < 0 {
				firstDef = i
			}
		} else {
			line[i] = undef()
		}
		sig[i] = undef()
		hist[i] = undef()
	}
	if firstDef < 0 {
		return line, sig, hist
	}
	sigDef := EMA(line[firstDef:], signal)
	for i, v := range sigDef {
		sig[firstDef+i] = v
		if Defined(v) {
			hist[firstDef+i] = line[firstDef+i] - v
		}
	}
	return line, sig, hist
}

// TrueRange: max(h-l, |h-prevC|, |l-prevC|); для первой свечи просто h-l.
func TrueRange(w []models.Candle) []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		if i == 0 {
			out[i] = c.High - c.Low
			continue
		}
		prevClose := w[i-1].Close
		out[i] = math.Max(c.High-c.Low,
			math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
	}
	return out
}

// ATR — сглаженный true range.
func ATR(w []models.Candle, period int) []float64 {
	return EMA(TrueRange(w), period)
}

// Bollinger: SMA ± mult * стандартное отклонение окна.
func Bollinger(closes []float64, period int, mult float64) (upper, mid, lower []float64) {
	n := len(closes)
	mid = SMA(closes, period)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		m := mid[i]
		if !Defined(m) {
			upper[i] = undef()
			lower[i] = undef()
			continue
		}
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - m
			variance += d * d
		}
		std := math.Sqrt(variance / float64(period))
		upper[i] = m + mult*std
		lower[i] = m - mult*std
	}
	return upper, mid, lower
}

// VWAPSession — граница сброса VWAP. Явный конфиг, а не неявное поведение.
type VWAPSession string

const (
	// VWAPRolling — скользящее окно из N свечей (режим по умолчанию).
	VWAPRolling VWAPSession = "rolling"
	// VWAPDaily — сброс на границе календарного дня UTC.
	VWAPDaily VWAPSession = "daily"
)

// VWAP по typical price (H+L+C)/3.
func VWAP(w []models.Candle, window int, session VWAPSession) []float64 {
	if session == VWAPDaily {
		return vwapDaily(w)
	}
	return vwapRolling(w, window)
}

func vwapRolling(w []models.Candle, window int) []float64 {
	out := make([]float64, len(w))
	for i := range w {
		if i < window-1 || window <= 0 {
			out[i] = undef()
			continue
		}
		sumPV, sumV := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			tp := (w[j].High + w[j].Low + w[j].Close) / 3.0
			sumPV += tp * w[j].Volume
			sumV += w[j].Volume
		}
		if sumV == 0 {
			out[i] = undef()
			continue
		}
		out[i] = sumPV / sumV
	}
	return out
}

func vwapDaily(w []models.Candle) []float64 {
	out := make([]float64, len(w))
	sumPV, sumV := 0.0, 0.0
	var day int
	for i, c := range w {
		d := c.Ts.UTC().YearDay() + c.Ts.UTC().Year()*1000
		if i == 0 || d != day {
			day = d
			sumPV, sumV = 0.0, 0.0
		}
		tp := (c.High + c.Low + c.Close) / 3.0
		sumPV += tp * c.Volume
		sumV += c.Volume
		if sumV == 0 {
			out[i] = undef()
			continue
		}
		out[i] = sumPV / sumV
	}
	return out
}

// Keltner: EMA-центр ± mult * ATR того же периода.
func Keltner(w []models.Candle, period int, atrMult float64) (upper, mid, lower []float64) {
	n := len(w)
	mid = EMA(models.Closes(w), period)
	atr := ATR(w, period)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		if !Defined(mid[i]) || !Defined(atr[i]) {
			upper[i] = undef()
			lower[i] = undef()
			continue
		}
		upper[i] = mid[i] + atrMult*atr[i]
		lower[i] = mid[i] - atrMult*atr[i]
	}
	return upper, mid, lower
}

// Stochastic %K/%D. При плоском окне (max==min) %K = 50.
// %D — SMA только по определённой части %K.
func Stochastic(w []models.Candle, kPeriod, dPeriod int) (k, d []float64) {
	n := len(w)
	k = make([]float64, n)
	d = make([]float64, n)
	firstDef := -1
	for i := 0; i < n; i++ {
		if i < kPeriod-1 || kPeriod <= 0 {
			k[i] = undef()
			d[i] = undef()
			continue
		}
		highest, lowest := w[i].High, w[i].Low
		for j := i - kPeriod + 1; j <= i; j++ {
			highest = math.Max(highest, w[j].High)
			lowest = math.Min(lowest, w[j].Low)
		}
		if highest == lowest {
			k[i] = 50.0
		} else {
			k[i] = (w[i].Close - lowest) / (highest - lowest) * 100.0
		}
		if firstDef < 0 {
			firstDef = i
		}
		d[i] = undef()
	}
	if firstDef < 0 {
		return k, d
	}
	dDef := SMA(k[firstDef:], dPeriod)
	for i, v := range dDef {
		d[firstDef+i] = v
	}
	return k, d
}

// MicroLevels — min/max последних window закрытий как микро-уровни
// поддержки/сопротивления. NaN если окно короче.
func MicroLevels(closes []float64, window int) (support, resistance float64) {
	if window <= 0 || len(closes) < window {
		return undef(), undef()
	}
	recent := closes[len(closes)-window:]
	support, resistance = recent[0], recent[0]
	for _, v := range recent[1:] {
		support = math.Min(support, v)
		resistance = math.Max(resistance, v)
	}
	return support, resistance
}
