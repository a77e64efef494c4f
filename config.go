package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/dnldd/chartview/shared"
	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Symbol is the charted symbol.
	Symbol string
	// Timeframe is the timeframe the chart starts on.
	Timeframe string
	// APIURL is the chart backend base url.
	APIURL string
	// StreamURL is the live bar websocket url.
	StreamURL string
	// DBEndpoint is the rqlite endpoint viewport state is persisted to.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// MetricsAddr is the address metrics are served on.
	MetricsAddr string
	// CoolDown is the minimum spacing between starts of the same fetch in milliseconds.
	CoolDown int
	// RefreshInterval is the periodic refresh interval in seconds.
	RefreshInterval int
	// CycleTimeout bounds viewport update cycles in seconds.
	CycleTimeout int

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}
	if _, err := shared.ParseTimeframe(cfg.Timeframe); err != nil {
		errs = errors.Join(errs, err)
	}
	if cfg.APIURL == "" {
		errs = errors.Join(errs, fmt.Errorf("api url cannot be an empty string"))
	}
	if cfg.DBUser != "" && cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database user provided without a database endpoint"))
	}
	if cfg.CoolDown < 0 {
		errs = errors.Join(errs, fmt.Errorf("cool-down cannot be negative"))
	}
	if cfg.RefreshInterval <= 0 {
		errs = errors.Join(errs, fmt.Errorf("refresh interval must be positive"))
	}
	if cfg.CycleTimeout <= 0 {
		errs = errors.Join(errs, fmt.Errorf("cycle timeout must be positive"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Defaults are taken from the environment, falling back to the provided default.
func (cfg *Config) registerFlag(name string, value interface{}, def string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = def
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var defBool bool
		if defValue != "" {
			defBool, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, defBool, usage)
	case reflect.Int:
		var defInt int
		if defValue != "" {
			parsed, err := strconv.Atoi(defValue)
			if err != nil {
				return fmt.Errorf("%s: parsing default %q: %w", name, defValue, err)
			}
			defInt = parsed
		}
		flag.IntVar(value.(*int), name, defInt, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		def   string
		usage string
	}{
		{name: "symbol", value: &cfg.Symbol, def: "BTC/USDT", usage: "the charted symbol"},
		{name: "timeframe", value: &cfg.Timeframe, def: shared.OneHour.String(), usage: "the starting timeframe"},
		{name: "apiurl", value: &cfg.APIURL, usage: "the chart backend base url"},
		{name: "streamurl", value: &cfg.StreamURL, usage: "the live bar websocket url"},
		{name: "dbendpoint", value: &cfg.DBEndpoint, usage: "the rqlite endpoint"},
		{name: "dbuser", value: &cfg.DBUser, usage: "the database user"},
		{name: "dbpass", value: &cfg.DBPass, usage: "the database user pass"},
		{name: "metricsaddr", value: &cfg.MetricsAddr, usage: "the metrics listen address"},
		{name: "cooldown", value: &cfg.CoolDown, def: "2000", usage: "the fetch cool-down in milliseconds"},
		{name: "refreshinterval", value: &cfg.RefreshInterval, def: "60", usage: "the refresh interval in seconds"},
		{name: "cycletimeout", value: &cfg.CycleTimeout, def: "30", usage: "the update cycle timeout in seconds"},
	}

	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.def, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
