package service

import (
	"sync"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
)

// Store — скользящие окна закрытых свечей: инструмент -> таймфрейм -> окно.
// Снаружи окна видны только копиями, раннер работает со снапшотом цикла.
type Store struct {
	mu    sync.RWMutex
	limit int

	tfFast   string
	tfSlow   string
	tfMedium string

	wins map[string]map[string][]models.Candle
}

func NewStore(tfFast, tfSlow, tfMedium string, limit int) *Store {
	return &Store{
		limit:    limit,
		tfFast:   helper.NormTF(tfFast),
		tfSlow:   helper.NormTF(tfSlow),
		tfMedium: helper.NormTF(tfMedium),
		wins:     make(map[string]map[string][]models.Candle),
	}
}

// Warm заливает REST-прогрев целиком, ожидает порядок от старых к новым.
func (s *Store) Warm(instID, tf string, candles []models.Candle) {
	tf = helper.NormTF(tf)
	if len(candles) > s.limit {
		candles = candles[len(candles)-s.limit:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wins[instID] == nil {
		s.wins[instID] = make(map[string][]models.Candle)
	}
	s.wins[instID][tf] = append([]models.Candle(nil), candles...)
}

// Append добавляет закрытую свечу из стрима.
// false — свеча не новее последней, окно не трогаем.
func (s *Store) Append(t models.CandleTick) bool {
	tf := helper.NormTF(t.TimeframeRaw)
	c := t.Candle()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wins[t.InstID] == nil {
		s.wins[t.InstID] = make(map[string][]models.Candle)
	}
	win := s.wins[t.InstID][tf]
	if n := len(win); n > 0 && !c.Ts.After(win[n-1].Ts) {
		return false
	}
	win = append(win, c)
	if len(win) > s.limit {
		win = win[len(win)-s.limit:]
	}
	s.wins[t.InstID][tf] = win
	return true
}

// Snapshot — копии трёх окон инструмента на момент вызова.
func (s *Store) Snapshot(instID string) (fast, slow, medium []models.Candle) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byTF := s.wins[instID]
	if byTF == nil {
		return nil, nil, nil
	}
	return append([]models.Candle(nil), byTF[s.tfFast]...),
		append([]models.Candle(nil), byTF[s.tfSlow]...),
		append([]models.Candle(nil), byTF[s.tfMedium]...)
}

// Ready — хватает ли прогрева по входному ТФ.
func (s *Store) Ready(instID string, min int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byTF := s.wins[instID]
	return byTF != nil && len(byTF[s.tfFast]) >= min
}
