package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/catermarket/caterauth/internal/client/challenge"
	"github.com/catermarket/caterauth/internal/client/credentials"
	"github.com/catermarket/caterauth/internal/client/events"
	"github.com/catermarket/caterauth/internal/client/flows"
	"github.com/catermarket/caterauth/internal/client/identity"
	"github.com/catermarket/caterauth/internal/client/models"
	"github.com/catermarket/caterauth/internal/client/services"
	"github.com/catermarket/caterauth/internal/logging"
)

// Deps are the components App drives. They are built by cmd/cli.
type Deps struct {
	API      identity.Client
	Store    *credentials.Store
	Auth     services.AuthService
	Bus      *events.Bus
	Watcher  *events.Watcher
	Scratch  flows.Scratch
	Policies map[models.Role]flows.Policy
	Logger   logging.Logger

	In  io.Reader
	Out io.Writer
	// Clock drives OTP countdowns; time.Now when nil.
	Clock func() time.Time
}

type App struct {
	api      identity.Client
	store    *credentials.Store
	auth     services.AuthService
	bus      *events.Bus
	watcher  *events.Watcher
	scratch  flows.Scratch
	policies map[models.Role]flows.Policy
	logger   logging.Logger
	clock    func() time.Time

	reader *bufio.Reader
	out    io.Writer

	mu    sync.Mutex
	role  models.Role
	flow  *flows.Flow
	route string
}

func NewApp(d Deps) *App {
	a := &App{
		api:      d.API,
		store:    d.Store,
		auth:     d.Auth,
		bus:      d.Bus,
		watcher:  d.Watcher,
		scratch:  d.Scratch,
		policies: d.Policies,
		logger:   d.Logger,
		clock:    d.Clock,
		reader:   bufio.NewReader(d.In),
		out:      d.Out,
		role:     models.RoleCustomer,
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	if a.policies == nil {
		a.policies = map[models.Role]flows.Policy{
			models.RoleCustomer: flows.Customer,
			models.RoleVendor:   flows.Vendor,
		}
	}
	if r := a.store.Role(); r != models.RoleAnonymous {
		if _, ok := a.policies[r]; ok {
			a.role = r
		}
	}
	return a
}

// Navigate prints the route the web client would open. Login routes of a
// known role also switch the CLI to that role.
func (a *App) Navigate(ctx context.Context, route string) {
	a.mu.Lock()
	a.route = route
	for role, p := range a.policies {
		if p.LoginRoute == route {
			a.role = role
		}
	}
	a.mu.Unlock()
	fmt.Fprintf(a.out, "-> %s\n", route)
}

func (a *App) Route() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

func (a *App) Role() models.Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.role
}

func (a *App) policy() flows.Policy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policies[a.role]
}

// mount replaces the current flow, closing the old one so its in-flight
// responses are dropped.
func (a *App) mount() *flows.Flow {
	p := a.policy()
	f := flows.New(p, a.api, a.store, a.scratch,
		flows.WithTimer(challenge.New(challenge.WithClock(a.clock))),
		flows.WithLogger(a.logger))

	a.mu.Lock()
	old := a.flow
	a.flow = f
	a.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return f
}

func (a *App) current() *flows.Flow {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flow
}

func (a *App) isLoggedIn() bool {
	return a.store.IsAuthenticated()
}

// focus rechecks the shared session before a command runs.
func (a *App) focus(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Focus(ctx)
	}
}

func (a *App) getStatus() string {
	s := string(a.Role())
	if p := a.store.Principal(); p != nil && p.DisplayName != "" {
		s = p.DisplayName + " " + s
	} else if a.isLoggedIn() {
		s = "signed-in " + s
	}
	return fmt.Sprintf("(%s)", s)
}

// StartSessionWatcher keeps the session in step with other processes until
// ctx is done. Session changes observed while idle are reported.
func (a *App) StartSessionWatcher(ctx context.Context) {
	if a.watcher == nil {
		return
	}
	unsubscribe := a.bus.Subscribe(func(ctx context.Context, ev events.Event) {
		if ev.Kind == events.KindObserved {
			if a.isLoggedIn() {
				fmt.Fprintln(a.out, "session updated in another window")
			} else {
				fmt.Fprintln(a.out, "signed out in another window")
			}
		}
	})
	defer unsubscribe()

	if err := a.watcher.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error(ctx, "session watcher stopped", "error", err)
	}
}

// Run starts the watcher and blocks in the REPL until the user exits or
// input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if f := a.current(); f != nil {
			f.Close()
		}
		if err := a.auth.Close(); err != nil {
			a.logger.Warn(ctx, "close identity client", "error", err)
		}
	}()

	go a.StartSessionWatcher(ctx)

	fmt.Fprintln(a.out, "caterauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
