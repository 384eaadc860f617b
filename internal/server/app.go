// Package server runs the gate: it admits or redirects page requests based
// on the session cookies and proxies admitted requests to the frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"

	"github.com/catermarket/caterauth/internal/logging"
	"github.com/catermarket/caterauth/internal/server/config"
	"github.com/catermarket/caterauth/internal/server/gate"
	"github.com/catermarket/caterauth/internal/server/middleware"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	upstream string
	fiber    *fiber.App
}

func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", c.UpstreamURL)
	}

	app := &App{
		config:   c,
		logger:   logger,
		upstream: strings.TrimRight(u.String(), "/"),
		fiber: fiber.New(fiber.Config{
			AppName:               "caterauth-gate",
			DisableStartupMessage: true,
		}),
	}

	app.fiber.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.fiber.Use(middleware.RequestID(), middleware.AccessLog(logger))
	app.fiber.Use(gate.New(gate.DefaultRules(), logger))
	app.fiber.Use(app.forward)
	return app, nil
}

// Handler exposes the fiber app, mainly for tests.
func (app *App) Handler() *fiber.App { return app.fiber }

func (app *App) forward(c *fiber.Ctx) error {
	if err := proxy.Do(c, app.upstream+c.OriginalURL()); err != nil {
		app.logger.Error(c.UserContext(), "upstream request failed", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, "upstream unavailable")
	}
	c.Response().Header.Del(fiber.HeaderServer)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is done or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "gate listening", "addr", app.config.ListenAddr, "upstream", app.upstream)
		errCh <- app.fiber.Listen(app.config.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := app.fiber.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
