package indicator

import (
	"math"
	"testing"
	"time"

	"signal_bot/internal/models"
)

func candles(vals ...float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(vals))
	for i, v := range vals {
		out[i] = models.Candle{
			Open: v, High: v * 1.01, Low: v * 0.99, Close: v, Volume: 100,
			Ts: base.Add(time.Duration(i) * 15 * time.Minute),
		}
	}
	return out
}

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMAWarmup(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	out := SMA(vals, 3)
	for i := 0; i < 2; i++ {
		if Defined(out[i]) {
			t.Fatalf("SMA[%d] must be undefined during warmup, got %v", i, out[i])
		}
	}
	if !almostEq(out[2], 2) || !almostEq(out[4], 4) {
		t.Fatalf("unexpected SMA values: %v", out)
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	vals := []float64{10, 20, 30, 40}
	out := EMA(vals, 3)
	if Defined(out[0]) || Defined(out[1]) {
		t.Fatalf("EMA must be undefined before period-1")
	}
	// посев = SMA(10,20,30) = 20
	if !almostEq(out[2], 20) {
		t.Fatalf("EMA seed = %v, want 20", out[2])
	}
	// k = 0.5: (40-20)*0.5+20 = 30
	if !almostEq(out[3], 30) {
		t.Fatalf("EMA[3] = %v, want 30", out[3])
	}
}

func TestEMATooShortAllUndefined(t *testing.T) {
	out := EMA([]float64{1, 2}, 5)
	for i, v := range out {
		if Defined(v) {
			t.Fatalf("EMA[%d] defined on short input", i)
		}
	}
}

func TestRSIWarmupUndefined(t *testing.T) {
	closes := []float64{1, 2, 3}
	for _, v := range RSI(closes, 9) {
		if Defined(v) {
			t.Fatal("RSI defined below warmup")
		}
	}
}

func TestRSIRange(t *testing.T) {
	closes := make([]float64, 60)
	px := 100.0
	for i := range closes {
		if i%2 == 0 {
			px *= 1.004
		} else {
			px *= 0.998
		}
		closes[i] = px
	}
	out := RSI(closes, 9)
	last := Last(out)
	if !Defined(last) {
		t.Fatal("RSI undefined on long window")
	}
	if last <= 0 || last >= 100 {
		t.Fatalf("RSI out of range: %v", last)
	}
}

func TestMACDNoZeroSubstitution(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.3
	}
	line, sig, hist := MACD(closes, 6, 13, 5)
	// линия определена с slow-1
	if Defined(line[11]) || !Defined(line[12]) {
		t.Fatalf("macd line warmup boundary wrong")
	}
	// сигнальная стартует позже линии, не от нулевого пролога
	if Defined(sig[12]) {
		t.Fatal("signal line defined at macd first bar")
	}
	if !Defined(Last(sig)) || !Defined(Last(hist)) {
		t.Fatal("signal/hist undefined at tail")
	}
	if !almostEq(Last(hist), Last(line)-Last(sig)) {
		t.Fatal("hist != line - signal")
	}
}

func TestATRPositive(t *testing.T) {
	w := candles(100, 101, 102, 101, 103, 104, 103, 105, 104, 106, 107, 106, 108, 109, 108, 110)
	out := ATR(w, 14)
	last := Last(out)
	if !Defined(last) || last <= 0 {
		t.Fatalf("ATR = %v", last)
	}
	if Defined(out[12]) {
		t.Fatal("ATR defined below warmup")
	}
}

func TestBollingerBands(t *testing.T) {
	closes := []float64{2, 4, 6, 8, 10, 12}
	upper, mid, lower := Bollinger(closes, 5, 2.0)
	if Defined(upper[3]) {
		t.Fatal("bollinger defined below warmup")
	}
	m := mid[4]
	if !almostEq(m, 6) {
		t.Fatalf("mid = %v, want 6", m)
	}
	// дисперсия окна 2..10 = 8, std = 2.828..., band = mid ± 2*std
	std := math.Sqrt(8)
	if !almostEq(upper[4], 6+2*std) || !almostEq(lower[4], 6-2*std) {
		t.Fatalf("bands = %v / %v", upper[4], lower[4])
	}
}

func TestVWAPRollingWarmup(t *testing.T) {
	w := candles(100, 101, 102, 103, 104)
	out := VWAP(w, 3, VWAPRolling)
	if Defined(out[1]) {
		t.Fatal("vwap defined below window")
	}
	if !Defined(out[4]) {
		t.Fatal("vwap undefined at tail")
	}
}

func TestVWAPDailyReset(t *testing.T) {
	w := candles(100, 100, 100, 100)
	// последние две свечи — следующий день: сессия должна сброситься
	w[2].Ts = w[1].Ts.Add(24 * time.Hour)
	w[3].Ts = w[2].Ts.Add(15 * time.Minute)
	w[2].High, w[2].Low, w[2].Close = 202, 198, 200
	w[2].Open = 200
	w[3].High, w[3].Low, w[3].Close = 202, 198, 200
	w[3].Open = 200
	out := VWAP(w, 0, VWAPDaily)
	if !almostEq(out[3], 200) {
		t.Fatalf("daily vwap must ignore previous session, got %v", out[3])
	}
}

func TestStochasticFlatWindow(t *testing.T) {
	w := make([]models.Candle, 20)
	base := time.Now().UTC()
	for i := range w {
		w[i] = models.Candle{Open: 100, High: 100, Low: 100, Close: 100, Volume: 1,
			Ts: base.Add(time.Duration(i) * time.Minute)}
	}
	k, _ := Stochastic(w, 14, 3)
	if !almostEq(Last(k), 50) {
		t.Fatalf("flat window %%K = %v, want 50", Last(k))
	}
}

func TestStochasticBounds(t *testing.T) {
	w := candles(100, 99, 101, 98, 102, 97, 103, 96, 104, 95, 105, 94, 106, 93, 107, 92)
	k, d := Stochastic(w, 14, 3)
	if Defined(k[12]) {
		t.Fatal("%K defined below warmup")
	}
	last := Last(k)
	if !Defined(last) || last < 0 || last > 100 {
		t.Fatalf("%%K = %v", last)
	}
	if !Defined(Last(d)) {
		t.Fatal("%D undefined at tail")
	}
}

func TestKeltnerWarmup(t *testing.T) {
	w := candles(100, 101, 102, 103, 104, 105, 106, 107, 108, 109,
		110, 111, 112, 113, 114, 115, 116, 117, 118, 119, 120, 121)
	upper, mid, lower := Keltner(w, 20, 2.0)
	if Defined(upper[18]) {
		t.Fatal("keltner defined below warmup")
	}
	if !(Last(lower) < Last(mid) && Last(mid) < Last(upper)) {
		t.Fatalf("keltner ordering broken: %v %v %v", Last(lower), Last(mid), Last(upper))
	}
}

func TestMicroLevels(t *testing.T) {
	sup, res := MicroLevels([]float64{5, 1, 9, 3}, 3)
	if !almostEq(sup, 1) || !almostEq(res, 9) {
		t.Fatalf("levels = %v/%v", sup, res)
	}
	sup, res = MicroLevels([]float64{1, 2}, 3)
	if Defined(sup) || Defined(res) {
		t.Fatal("levels must be undefined on short window")
	}
}
