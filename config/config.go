// Package config holds the pricing model choices and market conventions
// shared by the command line tools and the HTTP server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/meenmo/cdslib/calendar"
	"github.com/meenmo/cdslib/calibrate"
	"github.com/meenmo/cdslib/cds"
	"github.com/meenmo/cdslib/logger"
	"github.com/meenmo/cdslib/pricer"
	"github.com/meenmo/cdslib/yieldcurve"
)

// EnvPrefix prefixes environment overrides, e.g. CDSLIB_MODEL_BUILDER=fast.
const EnvPrefix = "CDSLIB"

// Config is the complete configuration.
type Config struct {
	Model       ModelConfig       `mapstructure:"model"`
	Conventions ConventionsConfig `mapstructure:"conventions"`
	YieldCurve  YieldCurveConfig  `mapstructure:"yieldcurve"`
	// Workers bounds concurrent calibrations.
	Workers int           `mapstructure:"workers"`
	Log     logger.Config `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
}

// ModelConfig selects the accrual-on-default formula, the curve builder and
// the arbitrage policy.
type ModelConfig struct {
	Formula   string `mapstructure:"formula"`
	Builder   string `mapstructure:"builder"`
	Arbitrage string `mapstructure:"arbitrage"`
}

// ConventionsConfig are the standard CDS contract conventions.
type ConventionsConfig struct {
	Calendar       string  `mapstructure:"calendar"`
	Recovery       float64 `mapstructure:"recovery"`
	StepinDays     int     `mapstructure:"stepin_days"`
	CashSettleDays int     `mapstructure:"cash_settle_days"`
	IntervalMonths int     `mapstructure:"interval_months"`
	Stub           string  `mapstructure:"stub"`
}

// YieldCurveConfig are the deposit and swap conventions of the discount curve.
type YieldCurveConfig struct {
	SpotDays           int    `mapstructure:"spot_days"`
	Calendar           string `mapstructure:"calendar"`
	MoneyMarketDC      string `mapstructure:"money_market_dc"`
	SwapFixedDC        string `mapstructure:"swap_fixed_dc"`
	SwapIntervalMonths int    `mapstructure:"swap_interval_months"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	MetricsPath string `mapstructure:"metrics_path"`
	// gin mode: debug, release or test
	Mode string `mapstructure:"mode"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	Model: ModelConfig{
		Formula:   string(pricer.OriginalISDA),
		Builder:   string(calibrate.Analytic),
		Arbitrage: string(calibrate.Ignore),
	},
	Conventions: ConventionsConfig{
		Calendar:       string(calendar.WEEKEND),
		Recovery:       0.4,
		StepinDays:     1,
		CashSettleDays: 3,
		IntervalMonths: 3,
		Stub:           string(cds.StubShortInitial),
	},
	YieldCurve: YieldCurveConfig{
		SpotDays:           2,
		Calendar:           string(calendar.WEEKEND),
		MoneyMarketDC:      "ACT/360",
		SwapFixedDC:        "30/360",
		SwapIntervalMonths: 6,
	},
	Workers: 4,
	Log:     logger.DefaultConfig(),
	Server: ServerConfig{
		Address:     ":8080",
		MetricsPath: "/metrics",
		Mode:        "release",
	},
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Load reads path (optional) over DefaultConfig, then applies CDSLIB_*
// environment overrides. An empty path reads only the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault("model.formula", d.Model.Formula)
	v.SetDefault("model.builder", d.Model.Builder)
	v.SetDefault("model.arbitrage", d.Model.Arbitrage)

	v.SetDefault("conventions.calendar", d.Conventions.Calendar)
	v.SetDefault("conventions.recovery", d.Conventions.Recovery)
	v.SetDefault("conventions.stepin_days", d.Conventions.StepinDays)
	v.SetDefault("conventions.cash_settle_days", d.Conventions.CashSettleDays)
	v.SetDefault("conventions.interval_months", d.Conventions.IntervalMonths)
	v.SetDefault("conventions.stub", d.Conventions.Stub)

	v.SetDefault("yieldcurve.spot_days", d.YieldCurve.SpotDays)
	v.SetDefault("yieldcurve.calendar", d.YieldCurve.Calendar)
	v.SetDefault("yieldcurve.money_market_dc", d.YieldCurve.MoneyMarketDC)
	v.SetDefault("yieldcurve.swap_fixed_dc", d.YieldCurve.SwapFixedDC)
	v.SetDefault("yieldcurve.swap_interval_months", d.YieldCurve.SwapIntervalMonths)

	v.SetDefault("workers", d.Workers)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.with_caller", d.Log.WithCaller)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.metrics_path", d.Server.MetricsPath)
	v.SetDefault("server.mode", d.Server.Mode)
}

// Validate checks every enumerated setting parses.
func (c Config) Validate() error {
	if _, err := c.Formula(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Builder(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cds.ParseStub(c.Conventions.Stub); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Conventions.Recovery < 0 || c.Conventions.Recovery >= 1 {
		return fmt.Errorf("config: recovery %g outside [0, 1)", c.Conventions.Recovery)
	}
	if c.Conventions.IntervalMonths <= 0 || c.YieldCurve.SwapIntervalMonths <= 0 {
		return fmt.Errorf("config: payment intervals must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers %d must be positive", c.Workers)
	}
	return nil
}

func (c Config) Formula() (pricer.AccrualOnDefaultFormula, error) {
	return pricer.ParseFormula(c.Model.Formula)
}

// Builder returns the configured credit curve builder.
func (c Config) Builder() (calibrate.Builder, error) {
	formula, err := c.Formula()
	if err != nil {
		return nil, err
	}
	arb, err := calibrate.ParseArbitrageHandling(c.Model.Arbitrage)
	if err != nil {
		return nil, err
	}
	return calibrate.NewBuilder(calibrate.Kind(strings.ToLower(c.Model.Builder)), formula, arb)
}

// Factory returns a contract factory with the configured conventions.
func (c Config) Factory() cds.Factory {
	f := cds.NewFactory().
		WithRecoveryRate(c.Conventions.Recovery).
		WithCalendar(calendar.Parse(c.Conventions.Calendar))
	f.StepinDays = c.Conventions.StepinDays
	f.CashSettleDays = c.Conventions.CashSettleDays
	f.PaymentIntervalMonths = c.Conventions.IntervalMonths
	if stub, err := cds.ParseStub(c.Conventions.Stub); err == nil {
		f.Stub = stub
	}
	return f
}

// YieldCurveConventions returns the bootstrap conventions.
func (c Config) YieldCurveConventions() yieldcurve.Conventions {
	conv := yieldcurve.DefaultConventions()
	conv.SpotDays = c.YieldCurve.SpotDays
	conv.Calendar = calendar.Parse(c.YieldCurve.Calendar)
	conv.MoneyMarketDC = c.YieldCurve.MoneyMarketDC
	conv.SwapFixedDC = c.YieldCurve.SwapFixedDC
	conv.SwapIntervalMonths = c.YieldCurve.SwapIntervalMonths
	return conv
}
