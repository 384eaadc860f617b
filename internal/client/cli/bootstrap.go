package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/catermarket/caterauth/internal/client/config"
	"github.com/catermarket/caterauth/internal/client/credentials"
	"github.com/catermarket/caterauth/internal/client/events"
	"github.com/catermarket/caterauth/internal/client/flows"
	"github.com/catermarket/caterauth/internal/client/guard"
	"github.com/catermarket/caterauth/internal/client/identity"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/client/repositories/cookies"
	"github.com/catermarket/caterauth/internal/client/services"
	"github.com/catermarket/caterauth/internal/client/storage"
	"github.com/catermarket/caterauth/internal/logging"
)

// Bootstrap wires storage, the session components and the Identity API
// client from c. The returned closer releases the database and Redis
// connections.
func Bootstrap(ctx context.Context, c *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, func() error, error) {
	site, err := url.Parse(c.SiteURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid site url: %w", err)
	}

	db, err := storage.OpenDatabase(ctx, c.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	closers := []func() error{db.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	page, err := storage.OpenPage(ctx, db, c.StoreSecret)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	var jar cookies.Repository
	busOpts := []events.Option{events.WithLogger(logger)}
	if c.RedisURL != "" {
		rdb, err := storage.OpenRedis(ctx, c.RedisURL)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, rdb.Close)
		jar, busOpts = redisBackends(rdb, c.KeyPrefix(), busOpts)
	} else {
		logger.Info(ctx, "no redis url configured, cookies are kept in the local database")
		jar = cookies.NewSQLiteRepository(db)
	}

	bus := events.NewBus(busOpts...)
	store, err := credentials.New(ctx, page, jar,
		credentials.WithPublisher(bus),
		credentials.WithLogger(logger),
		credentials.WithTTLs(c.AccessTTL, c.RefreshTTL))
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	policies := map[models.Role]flows.Policy{}
	for _, p := range []flows.Policy{flows.Customer, flows.Vendor} {
		p.SignupOTPTTL, p.ResetOTPTTL = c.SignupOTPTTL, c.ResetOTPTTL
		policies[p.Kind] = p
	}

	var app *App
	g := guard.New(store,
		guard.NavigatorFunc(func(ctx context.Context, route string) { app.Navigate(ctx, route) }),
		guard.WithLoginRoute(models.RoleCustomer, flows.Customer.LoginRoute),
		guard.WithLoginRoute(models.RoleVendor, flows.Vendor.LoginRoute),
		guard.WithLoginRoute(models.RoleAdmin, guard.AdminLoginRoute),
		guard.WithLogger(logger))

	transport, err := newTransport(c, g, cookies.NewJar(jar, site))
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	api := identity.New(transport)

	app = NewApp(Deps{
		API:      api,
		Store:    store,
		Auth:     services.NewAuthService(api, store, logger),
		Bus:      bus,
		Watcher:  events.NewWatcher(store, bus, events.WithInterval(c.PollInterval), events.WithWatcherLogger(logger)),
		Scratch:  flows.NewMemoryScratch(),
		Policies: policies,
		Logger:   logger,
		In:       in,
		Out:      out,
	})
	return app, closeAll, nil
}

func redisBackends(rdb redis.UniversalClient, prefix string, busOpts []events.Option) (cookies.Repository, []events.Option) {
	return cookies.NewRedisRepository(rdb, prefix),
		append(busOpts, events.WithBroadcaster(events.NewRedisBroadcaster(rdb, prefix)))
}

// newTransport picks gRPC when an address is configured and HTTP otherwise.
// Both are guarded.
func newTransport(c *config.Config, g *guard.Guard, jar http.CookieJar) (identity.Transport, error) {
	if c.GRPCAddr != "" {
		return identity.NewGRPCTransport(c.GRPCAddr, g.DialOption())
	}
	hc := g.Client(&http.Client{Timeout: c.HTTPTimeout, Jar: jar})
	return identity.NewHTTPTransport(c.APIBaseURL, identity.WithHTTPClient(hc)), nil
}
