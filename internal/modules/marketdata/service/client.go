package service

import (
	"context"
	"net/http"
	"time"

	"signal_bot/internal/helper"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
	"signal_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const wsURL = "wss://ws.okx.com:8443/ws/v5/business"

type Client struct {
	cfg   *config.Config
	store *Store

	http     *http.Client
	wsDialer *websocket.Dialer
}

func NewClient(cfg *config.Config, store *Store) *Client {
	return &Client{
		cfg:      cfg,
		store:    store,
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
	}
}

// Start прогревает окна по REST и поднимает по одному WS на таймфрейм.
func (c *Client) Start(ctx context.Context) {
	tfs := []string{c.cfg.TFFast, c.cfg.TFSlow, c.cfg.TFMedium}

	for _, inst := range c.cfg.Instruments {
		for _, tf := range tfs {
			candles, err := c.fetchCandles(ctx, inst, tf, c.cfg.CandlesLimit)
			if err != nil {
				logger.Error("[MARKET] warmup %s %s: %v", inst, tf, err)
				continue
			}
			c.store.Warm(inst, tf, candles)
		}
	}
	logger.Info("[MARKET] warmup done: %d instruments, %d timeframes",
		len(c.cfg.Instruments), len(tfs))

	for _, tf := range tfs {
		go c.runTimeframe(ctx, tf)
	}
}

func (c *Client) runTimeframe(ctx context.Context, timeframe string) {
	ticks := c.streamCandlesBatch(ctx, c.cfg.Instruments, timeframe)
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				logger.Error("[MARKET] stream %s closed", timeframe)
				return
			}
			if !c.store.Append(tick) {
				logger.Warn("[MARKET] stale candle dropped %s %s %s",
					tick.InstID, timeframe, tick.Start)
			}
		}
	}
}

// streamCandlesBatch — один WebSocket на таймфрейм с пачкой инструментов в args.
// Возвращает поток закрытых свечей, переподключается сам.
func (c *Client) streamCandlesBatch(ctx context.Context, instIDs []string, timeframe string) <-chan models.CandleTick {
	ch := make(chan models.CandleTick)

	go func() {
		defer close(ch)

		if len(instIDs) == 0 {
			return
		}

		channel := "candle" + okxBar(timeframe)
		tfDur := helper.TimeframeToDuration(timeframe)

		args := make([]map[string]string, 0, len(instIDs))
		for _, id := range instIDs {
			args = append(args, map[string]string{
				"channel": channel,
				"instId":  id,
			})
		}

		for {
			logger.Info("[WS] batch connect %s, %d symbols", channel, len(instIDs))
			conn, _, err := c.wsDialer.DialContext(ctx, wsURL, nil)
			if err != nil {
				logger.Error("[WS] batch dial %s: %v", channel, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			sub, _ := sonic.Marshal(map[string]any{
				"op":   "subscribe",
				"args": args,
			})
			if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
				logger.Error("[WS] batch subscribe %s: %v", channel, err)
				_ = conn.Close()
				continue
			}

			// keepalive ping каждые 20s — иначе OKX рвёт соединение
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(20 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-stopPing:
						return
					case <-t.C:
						_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"ping"}`))
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					logger.Error("[WS] batch read %s: %v", channel, err)
					_ = conn.Close()
					close(stopPing)
					break
				}

				var frame struct {
					Arg struct {
						Channel string `json:"channel"`
						InstID  string `json:"instId"`
					} `json:"arg"`
					Data [][]string `json:"data"`
				}
				if err := sonic.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Arg.Channel != channel || len(frame.Data) == 0 {
					continue
				}

				for _, row := range frame.Data {
					tick, ok := parseCandleRow(row, frame.Arg.InstID, timeframe, tfDur)
					if !ok {
						continue
					}
					select {
					case ch <- tick:
					case <-ctx.Done():
						_ = conn.Close()
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch
}
