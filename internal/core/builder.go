package core

import (
	"fmt"

	"knockd/config"
	"knockd/internal/catalog"
	"knockd/internal/metrics"
	"knockd/internal/transport"
	"knockd/util"
)

// Build constructs the appropriate Mode from the given configuration.
// This is the single dispatch point between serving and connecting.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return &ServeMode{
			Address:     fmt.Sprintf(":%d", cfg.Port),
			Source:      &catalog.SQLiteSource{Path: cfg.DBPath},
			IdleTimeout: cfg.IdleTimeout,
			AcceptTick:  config.DefaultAcceptTick,
			DrainPoll:   config.DefaultDrainPoll,
			Metrics:     metrics.New(),
			Logger:      logger,
		}, nil
	}

	return &ClientMode{
		Dialer:  &transport.TCPDialer{Timeout: cfg.Timeout},
		Address: util.FormatAddr(cfg.Host, cfg.Port),
		Logger:  logger,
	}, nil
}
