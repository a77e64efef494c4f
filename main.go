package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/dnldd/chartview/service"
	"github.com/dnldd/chartview/shared"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Err(err).Msg("loading config")
		return
	}

	// The timeframe was validated when loading the config.
	timeframe, _ := shared.ParseTimeframe(cfg.Timeframe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chartCfg := service.ChartConfig{
		Symbol:          cfg.Symbol,
		Timeframe:       timeframe,
		APIURL:          cfg.APIURL,
		StreamURL:       cfg.StreamURL,
		DBEndpoint:      cfg.DBEndpoint,
		DBUser:          cfg.DBUser,
		DBPass:          cfg.DBPass,
		MetricsAddr:     cfg.MetricsAddr,
		CoolDown:        time.Duration(cfg.CoolDown) * time.Millisecond,
		RefreshInterval: time.Duration(cfg.RefreshInterval) * time.Second,
		CycleTimeout:    time.Duration(cfg.CycleTimeout) * time.Second,
		Cancel:          cancel,
	}
	chart, err := service.NewChart(ctx, &chartCfg)
	if err != nil {
		log.Error().Err(err).Msg("creating chart service")
		return
	}

	go handleTermination(ctx, cancel)
	chart.Run(ctx)
}
