package serve

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/urfave/cli/v2"

	"tds-relay/config"
	"tds-relay/service"
	"tds-relay/service/query"
)

func Serve(ctx *cli.Context) error {
	logger := slog.Default()

	cfg, err := config.FromCLI(ctx, config.DefaultSecrets())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	relay := query.NewRelay(cfg.NewAssistant(), logger)
	router := service.NewRouter(relay, logger, service.Options{ServeFrontend: cfg.ServeFrontend})

	logger.InfoContext(ctx.Context, "starting relay", slog.Any("config", cfg))
	err = router.Run(cfg.Addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("unexpected error in http server: %w", err)
	}

	return nil
}
