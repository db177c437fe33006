package models

import (
	"fmt"
	"time"
)

// Candle — закрытая свеча OHLCV. После добавления в окно не мутируется.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ts     time.Time // время открытия свечи
}

// CandleTick — закрытая свеча из WS-стрима с привязкой к инструменту и ТФ.
type CandleTick struct {
	InstID       string
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	QuoteVolume  float64
	Start        time.Time
	End          time.Time
	TimeframeRaw string
}

// Candle отрезает стримовые поля.
func (t CandleTick) Candle() Candle {
	return Candle{
		Open:   t.Open,
		High:   t.High,
		Low:    t.Low,
		Close:  t.Close,
		Volume: t.Volume,
		Ts:     t.Start,
	}
}

// ValidateWindow — защита от мусора в данных: немонотонные таймстемпы или
// битые OHLC поля. Такое окно целиком отбрасываем на этот цикл.
func ValidateWindow(w []Candle) error {
	for i, c := range w {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("candle %d: non-positive OHLC", i)
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %.8f < low %.8f", i, c.High, c.Low)
		}
		if c.Volume < 0 {
			return fmt.Errorf("candle %d: negative volume", i)
		}
		if i > 0 && !c.Ts.After(w[i-1].Ts) {
			return fmt.Errorf("candle %d: non-monotonic ts %s", i, c.Ts)
		}
	}
	return nil
}

// Closes выдёргивает close из окна.
func Closes(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Close
	}
	return out
}

func Highs(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.High
	}
	return out
}

func Lows(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Low
	}
	return out
}

func Volumes(w []Candle) []float64 {
	out := make([]float64, len(w))
	for i, c := range w {
		out[i] = c.Volume
	}
	return out
}
