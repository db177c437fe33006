package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"signal_bot/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatIDTelegramENV = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
)

// StrategyParams — параметры индикаторов по стратегиям. Иммутабельны после
// старта, в цикл передаются по ссылке только на чтение.
type StrategyParams struct {
	// Качество: ниже порога стратегия кандидата не отдаёт.
	// 10 = строгий режим "только 10/10".
	QualityFloor float64 `yaml:"quality_floor"`

	// Triple EMA
	EMAFast      int `yaml:"ema_fast"`
	EMAMedium    int `yaml:"ema_medium"`
	EMASlow      int `yaml:"ema_slow"`
	EMARSIWindow int `yaml:"ema_rsi_window"`
	TrendEMA     int `yaml:"trend_ema"` // EMA тренда на слоу-ТФ

	// RSI / MACD
	RSIWindow      int `yaml:"rsi_window"`
	FastMACDFast   int `yaml:"fast_macd_fast"`
	FastMACDSlow   int `yaml:"fast_macd_slow"`
	FastMACDSignal int `yaml:"fast_macd_signal"`

	// Bollinger
	BBWindow           int     `yaml:"bb_window"`
	BBStdDev           float64 `yaml:"bb_std_dev"`
	BBSqueezeThreshold float64 `yaml:"bb_squeeze_threshold"` // ширина полос в % от середины

	// VWAP
	VWAPWindow        int     `yaml:"vwap_window"`
	VWAPSession       string  `yaml:"vwap_session"` // rolling | daily
	VWAPDivergencePct float64 `yaml:"vwap_divergence_pct"`

	// Keltner + Stochastic
	KeltnerWindow  int     `yaml:"keltner_window"`
	KeltnerATRMult float64 `yaml:"keltner_atr_mult"`
	StochKPeriod   int     `yaml:"stoch_k_period"`
	StochDPeriod   int     `yaml:"stoch_d_period"`

	// Range / breakout
	RangeLookback    int `yaml:"range_lookback"`
	BreakoutLookback int `yaml:"breakout_lookback"`
	LevelsWindow     int `yaml:"levels_window"` // микро-уровни поддержки/сопротивления
}

type Config struct {
	Exchange    string   `yaml:"exchange"`
	Instruments []string `yaml:"instruments"`

	// Таймфреймы: быстрый для входов, слоу и медиум для тренда
	TFFast   string `yaml:"tf_fast"`
	TFSlow   string `yaml:"tf_slow"`
	TFMedium string `yaml:"tf_medium"`

	CandlesLimit int `yaml:"candles_limit"`

	ActiveStrategies []string `yaml:"active_strategies"`

	Strategy StrategyParams `yaml:"strategy"`

	// Риск
	TargetRR          float64 `yaml:"target_rr"`
	MinSLPct          float64 `yaml:"min_sl_pct"`
	MaxSLPct          float64 `yaml:"max_sl_pct"`
	ATRWindow         int     `yaml:"atr_window"`
	ATRMult           float64 `yaml:"atr_mult"`
	MinVolatilityPct  float64 `yaml:"min_volatility_pct"`
	BreakevenTriggerR float64 `yaml:"breakeven_trigger_r"`

	// Перфоманс-фидбек для скоринга
	PerfWindow     int     `yaml:"perf_window"`
	PerfFloor      float64 `yaml:"perf_floor"`
	PerfMinSamples int     `yaml:"perf_min_samples"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"` // пусто = леджер только в памяти

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	MetricsAddr string `yaml:"metrics_addr"`

	// Интервалы — только из ENV, как и кулдауны:
	// в README фигурировали и 3, и 30 минут — оба значения конфигурируемы,
	// авторитетный дефолт фиксируется деплой-конфигом.
	CycleInterval     time.Duration
	CooldownGlobal    time.Duration
	CooldownStrategy  time.Duration
	CooldownAfterStop time.Duration
	MaxSignalHold     time.Duration
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}

	config := Config{
		Exchange:     "okx",
		TFFast:       "15m",
		TFSlow:       "1h",
		TFMedium:     "4h",
		CandlesLimit: 300,

		ActiveStrategies: []string{models.StrategyTripleEMA, models.StrategyBreakoutRetest},

		Strategy: StrategyParams{
			QualityFloor:       7,
			EMAFast:            8,
			EMAMedium:          21,
			EMASlow:            55,
			EMARSIWindow:       9,
			TrendEMA:           50,
			RSIWindow:          9,
			FastMACDFast:       6,
			FastMACDSlow:       13,
			FastMACDSignal:     5,
			BBWindow:           20,
			BBStdDev:           2.0,
			BBSqueezeThreshold: 0.1,
			VWAPWindow:         20,
			VWAPSession:        "rolling",
			VWAPDivergencePct:  0.15,
			KeltnerWindow:      20,
			KeltnerATRMult:     2.0,
			StochKPeriod:       14,
			StochDPeriod:       3,
			RangeLookback:      30,
			BreakoutLookback:   15,
			LevelsWindow:       12,
		},

		TargetRR:          3.0,
		MinSLPct:          0.5,
		MaxSLPct:          2.0,
		ATRWindow:         14,
		ATRMult:           1.5,
		MinVolatilityPct:  1.0,
		BreakevenTriggerR: 0.5,

		PerfWindow:     50,
		PerfFloor:      0.35,
		PerfMinSamples: 10,

		CycleInterval:     durationFromEnv("CYCLE_INTERVAL", "5m"),
		CooldownGlobal:    durationFromEnv("COOLDOWN_GLOBAL", "30m"),
		CooldownStrategy:  durationFromEnv("COOLDOWN_STRATEGY", "3m"),
		CooldownAfterStop: durationFromEnv("COOLDOWN_AFTER_STOP", "1h"),
		MaxSignalHold:     durationFromEnv("MAX_SIGNAL_HOLD", "4h"),
	}

	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if v := os.Getenv(chatIDTelegramENV); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		config.Instruments = splitCSV(v)
	}
	if v := os.Getenv("ACTIVE_STRATEGIES"); v != "" {
		config.ActiveStrategies = splitCSV(v)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate — структурные ошибки конфига фатальны на старте: пайплайн с
// кривым конфигом не должен запуститься и молча пропускать стратегии.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("config: empty instrument list")
	}
	if len(c.ActiveStrategies) == 0 {
		return fmt.Errorf("config: empty active strategy set")
	}
	known := map[string]bool{
		models.StrategyTripleEMA:      true,
		models.StrategyBBSqueeze:      true,
		models.StrategyBreakoutRetest: true,
		models.StrategyVWAPFade:       true,
		models.StrategyFastMACD:       true,
		models.StrategyRangeScalp:     true,
		models.StrategyKeltnerStoch:   true,
		models.StrategyVWAPEMA:        true,
	}
	for _, name := range c.ActiveStrategies {
		if !known[name] {
			return fmt.Errorf("config: unknown strategy %q in active set", name)
		}
	}
	if c.TargetRR <= 0 {
		return fmt.Errorf("config: target_rr (%v) must be positive", c.TargetRR)
	}
	if c.MinSLPct <= 0 || c.MaxSLPct <= 0 || c.MinSLPct >= c.MaxSLPct {
		return fmt.Errorf("config: sl bounds invalid: min %v max %v", c.MinSLPct, c.MaxSLPct)
	}
	if c.ATRWindow <= 0 || c.ATRMult <= 0 {
		return fmt.Errorf("config: atr_window/atr_mult must be positive")
	}
	if c.Strategy.QualityFloor < 0 || c.Strategy.QualityFloor > 10 {
		return fmt.Errorf("config: quality_floor (%v) must be in [0,10]", c.Strategy.QualityFloor)
	}
	for name, v := range map[string]int{
		"ema_fast":       c.Strategy.EMAFast,
		"ema_medium":     c.Strategy.EMAMedium,
		"ema_slow":       c.Strategy.EMASlow,
		"ema_rsi_window": c.Strategy.EMARSIWindow,
		"trend_ema":      c.Strategy.TrendEMA,
		"rsi_window":     c.Strategy.RSIWindow,
		"bb_window":      c.Strategy.BBWindow,
		"vwap_window":    c.Strategy.VWAPWindow,
		"keltner_window": c.Strategy.KeltnerWindow,
		"stoch_k_period": c.Strategy.StochKPeriod,
		"stoch_d_period": c.Strategy.StochDPeriod,
		"range_lookback": c.Strategy.RangeLookback,
		"levels_window":  c.Strategy.LevelsWindow,
	} {
		if v <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	if c.Strategy.EMAFast >= c.Strategy.EMAMedium || c.Strategy.EMAMedium >= c.Strategy.EMASlow {
		return fmt.Errorf("config: ema periods must be strictly increasing fast<medium<slow")
	}
	switch c.Strategy.VWAPSession {
	case "rolling", "daily":
	default:
		return fmt.Errorf("config: vwap_session must be rolling or daily, got %q", c.Strategy.VWAPSession)
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("config: cycle interval must be positive")
	}
	if c.CooldownGlobal <= 0 || c.CooldownStrategy <= 0 || c.CooldownAfterStop <= 0 {
		return fmt.Errorf("config: cooldown durations must be positive")
	}
	// 0 = экспирация выключена, отрицательное закрывало бы сигнал сразу
	if c.MaxSignalHold < 0 {
		return fmt.Errorf("config: max signal hold must not be negative")
	}
	// неположительный триггер переносил бы стоп в безубыток первым же тиком
	if c.BreakevenTriggerR <= 0 {
		return fmt.Errorf("config: breakeven_trigger_r (%v) must be positive", c.BreakevenTriggerR)
	}
	return nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func durationFromEnv(key, def string) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		val = def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
