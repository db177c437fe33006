package service

import (
	"testing"
	"time"

	"signal_bot/internal/models"
)

func tick(inst, tf string, ts time.Time, close float64) models.CandleTick {
	return models.CandleTick{
		InstID:       inst,
		Open:         close,
		High:         close * 1.01,
		Low:          close * 0.99,
		Close:        close,
		Volume:       10,
		Start:        ts,
		TimeframeRaw: tf,
	}
}

func TestAppendRejectsNonMonotonic(t *testing.T) {
	s := NewStore("15m", "1h", "4h", 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if !s.Append(tick("BTC-USDT", "15m", base, 100)) {
		t.Fatal("first append must pass")
	}
	if s.Append(tick("BTC-USDT", "15m", base, 101)) {
		t.Fatal("same timestamp must be rejected")
	}
	if s.Append(tick("BTC-USDT", "15m", base.Add(-15*time.Minute), 99)) {
		t.Fatal("older candle must be rejected")
	}
	if !s.Append(tick("BTC-USDT", "15m", base.Add(15*time.Minute), 102)) {
		t.Fatal("newer candle must pass")
	}

	fast, _, _ := s.Snapshot("BTC-USDT")
	if len(fast) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(fast))
	}
}

func TestWindowTrimsToLimit(t *testing.T) {
	s := NewStore("15m", "1h", "4h", 5)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		s.Append(tick("ETH-USDT", "15m", base.Add(time.Duration(i)*15*time.Minute), 100+float64(i)))
	}
	fast, _, _ := s.Snapshot("ETH-USDT")
	if len(fast) != 5 {
		t.Fatalf("window must trim to limit 5, got %d", len(fast))
	}
	if fast[4].Close != 111 {
		t.Fatalf("latest candle must survive the trim, got %v", fast[4].Close)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore("15m", "1h", "4h", 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.Append(tick("BTC-USDT", "15m", base, 100))

	fast, _, _ := s.Snapshot("BTC-USDT")
	fast[0].Close = -1

	again, _, _ := s.Snapshot("BTC-USDT")
	if again[0].Close != 100 {
		t.Fatal("snapshot must not alias internal state")
	}
}

func TestTimeframesNormalized(t *testing.T) {
	s := NewStore("candle15m", "60m", "240m", 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s.Append(tick("BTC-USDT", "15m", base, 100))
	s.Append(tick("BTC-USDT", "1h", base, 100))
	s.Append(tick("BTC-USDT", "4h", base, 100))

	fast, slow, medium := s.Snapshot("BTC-USDT")
	if len(fast) != 1 || len(slow) != 1 || len(medium) != 1 {
		t.Fatalf("normalized tf mismatch: %d/%d/%d", len(fast), len(slow), len(medium))
	}
}

func TestReady(t *testing.T) {
	s := NewStore("15m", "1h", "4h", 100)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if s.Ready("BTC-USDT", 1) {
		t.Fatal("empty store must not be ready")
	}
	var candles []models.Candle
	for i := 0; i < 3; i++ {
		candles = append(candles, models.Candle{
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 1,
			Ts: base.Add(time.Duration(i) * 15 * time.Minute),
		})
	}
	s.Warm("BTC-USDT", "15m", candles)
	if !s.Ready("BTC-USDT", 3) {
		t.Fatal("warmed store must be ready")
	}
	if s.Ready("BTC-USDT", 4) {
		t.Fatal("ready threshold must respect window length")
	}
}
