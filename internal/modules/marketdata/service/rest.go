package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signal_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// okxBar приводит наш таймфрейм к нотации OKX ("1h" -> "1H").
func okxBar(tf string) string {
	switch strings.ToLower(strings.TrimSpace(tf)) {
	case "60m", "1h":
		return "1H"
	case "240m", "4h":
		return "4H"
	case "1d":
		return "1D"
	default:
		return tf
	}
}

// fetchCandles — REST-прогрев окна. OKX отдаёт свечи от новых к старым,
// возвращаем уже в порядке окна: старые первыми.
func (c *Client) fetchCandles(ctx context.Context, instID, tf string, limit int) (candles []models.Candle, err error) {
	defer func() {
		if err != nil {
			err = errors.Wrap(err, "fetchCandles "+instID+" "+tf)
		}
	}()

	url := fmt.Sprintf(
		"https://www.okx.com/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		instID, okxBar(tf), limit,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("non-2xx: %d %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var wrap struct {
		Code string     `json:"code"`
		Msg  string     `json:"msg"`
		Data [][]string `json:"data"`
	}
	if err := sonic.Unmarshal(body, &wrap); err != nil {
		return nil, err
	}
	if wrap.Code != "0" {
		return nil, fmt.Errorf("okx error: code=%s msg=%s", wrap.Code, wrap.Msg)
	}

	out := make([]models.Candle, 0, len(wrap.Data))
	for i := len(wrap.Data) - 1; i >= 0; i-- {
		tick, ok := parseCandleRow(wrap.Data[i], instID, tf, 0)
		if !ok {
			continue
		}
		out = append(out, tick.Candle())
	}
	return out, nil
}

// parseCandleRow разбирает строку свечи OKX:
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
// Неподтверждённые свечи (confirm != "1") пропускаем в стриме; в REST-истории
// confirm отсутствует у части баров, поэтому строгая длина не требуется.
func parseCandleRow(row []string, instID, timeframe string, tfDur time.Duration) (models.CandleTick, bool) {
	if len(row) < 5 {
		return models.CandleTick{}, false
	}
	// confirm всегда в последнем элементе, не хардкодим индекс 8
	if len(row) >= 9 && row[len(row)-1] != "1" {
		return models.CandleTick{}, false
	}

	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.CandleTick{}, false
	}
	start := time.UnixMilli(tsMs).UTC()
	end := start
	if tfDur > 0 {
		end = start.Add(tfDur)
	}

	open, err1 := strconv.ParseFloat(row[1], 64)
	high, err2 := strconv.ParseFloat(row[2], 64)
	low, err3 := strconv.ParseFloat(row[3], 64)
	closep, err4 := strconv.ParseFloat(row[4], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || closep <= 0 {
		return models.CandleTick{}, false
	}

	var vol float64
	if len(row) >= 6 {
		vol, _ = strconv.ParseFloat(row[5], 64)
	}
	var volQuote float64
	if len(row) >= 8 {
		volQuote, _ = strconv.ParseFloat(row[7], 64)
	}

	return models.CandleTick{
		InstID:       instID,
		Open:         open,
		High:         high,
		Low:          low,
		Close:        closep,
		Volume:       vol,
		QuoteVolume:  volQuote,
		Start:        start,
		End:          end,
		TimeframeRaw: timeframe,
	}, true
}
