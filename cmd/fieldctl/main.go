package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"audient.app/internal/cache"
	"audient.app/internal/client"
	"audient.app/internal/obs"
	"audient.app/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, os.Args[2:])
	case "status":
		err = runStatus(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	case "logout":
		err = runLogout(ctx, os.Args[2:])
	default:
		usage()
	}
	obs.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldctl %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <login|status|watch|logout> [flags]\n", os.Args[0])
	os.Exit(2)
}

type options struct {
	apiURL       string
	redisURL     string
	device       string
	logLevel     string
	email        string
	password     string
	remember     bool
	lat, lon     float64
	denyLocation bool
	interval     time.Duration
}

func parseFlags(name string, args []string, withLogin bool) (options, error) {
	var o options
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&o.apiURL, "api", envOr("AUDIENT_API_URL", "http://localhost:3001"), "Backend base URL")
	fs.StringVar(&o.redisURL, "redis", os.Getenv("AUDIENT_REDIS_URL"), "Redis URL for the session store (in-memory when empty)")
	fs.StringVar(&o.device, "device", envOr("AUDIENT_DEVICE", "default"), "Device namespace in the session store")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level")
	fs.DurationVar(&o.interval, "interval", session.DefaultWatchdogInterval, "Watchdog interval")
	if withLogin {
		fs.StringVar(&o.email, "email", "", "Account email")
		fs.StringVar(&o.password, "password", os.Getenv("AUDIENT_PASSWORD"), "Account password")
		fs.BoolVar(&o.remember, "remember", true, "Persist the session for the next start")
		fs.Float64Var(&o.lat, "lat", 0, "Latitude reported by the locator")
		fs.Float64Var(&o.lon, "lon", 0, "Longitude reported by the locator")
		fs.BoolVar(&o.denyLocation, "deny-location", false, "Simulate a denied location permission")
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// staticLocator reports fixed coordinates, or a permission error when denied.
type staticLocator struct {
	coords session.Coordinates
	deny   bool
}

func (l staticLocator) Locate(context.Context) (session.Coordinates, error) {
	if l.deny {
		return session.Coordinates{}, errors.New("location permission denied")
	}
	return l.coords, nil
}

// terminalPrompter blocks until the user presses Enter. A single reader
// goroutine owns the input, so a prompt abandoned on cancellation leaves the
// pending line for the next prompt instead of a stranded reader.
type terminalPrompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan error
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: in, out: out}
}

func (p *terminalPrompter) readLines() {
	p.lines = make(chan error)
	go func() {
		r := bufio.NewReader(p.in)
		for {
			if _, err := r.ReadString('\n'); err != nil {
				if !errors.Is(err, io.EOF) {
					p.lines <- err
				}
				// Closed input acknowledges every later prompt.
				close(p.lines)
				return
			}
			p.lines <- nil
		}
	}()
}

func (p *terminalPrompter) ConfirmForcedLogout(ctx context.Context, message string) error {
	p.once.Do(p.readLines)
	fmt.Fprintf(p.out, "\n%s\nPress Enter to continue.", message)
	select {
	case err := <-p.lines:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newManager(ctx context.Context, o options) (*session.Manager, *client.Client, func(), error) {
	log, err := obs.Init("development", o.logLevel, "console")
	if err != nil {
		return nil, nil, nil, err
	}
	api, err := client.New(o.apiURL)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {}
	var store session.Store = session.NewMemoryStore()
	if o.redisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, o.redisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { _ = rdb.Close() }
		store = session.NewRedisStore(rdb, "audient:device:"+o.device+":")
	}

	mgr := session.NewManager(client.NewSessionBackend(api), store,
		session.WithLocator(staticLocator{coords: session.Coordinates{Latitude: o.lat, Longitude: o.lon}, deny: o.denyLocation}),
		session.WithPrompter(newTerminalPrompter(os.Stdin, os.Stdout)),
		session.WithWatchdogInterval(o.interval),
		session.WithLogger(log.Named("fieldctl")),
	)
	return mgr, api, func() {
		mgr.Close()
		cleanup()
	}, nil
}

func login(ctx context.Context, mgr *session.Manager, o options) error {
	if o.email == "" || o.password == "" {
		return errors.New("-email and -password are required")
	}
	p, err := mgr.Login(ctx, session.Credentials{Email: o.email, Password: o.password, Remember: o.remember})
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s), period %s\n", p.User.Name, p.User.Email, p.Period)
	return nil
}

func runLogin(ctx context.Context, args []string) error {
	o, err := parseFlags("login", args, true)
	if err != nil {
		return err
	}
	mgr, _, cleanup, err := newManager(ctx, o)
	if err != nil {
		return err
	}
	defer cleanup()
	mgr.Restore(ctx)
	return login(ctx, mgr, o)
}

func runStatus(ctx context.Context, args []string) error {
	o, err := parseFlags("status", args, false)
	if err != nil {
		return err
	}
	mgr, api, cleanup, err := newManager(ctx, o)
	if err != nil {
		return err
	}
	defer cleanup()

	decision := mgr.Restore(ctx)
	cfg := mgr.Config()
	fmt.Printf("state:     %s (%s)\n", mgr.State(), decision)
	fmt.Printf("window:    %s-%s %s\n", cfg.LoginTime, cfg.LogoffTime, cfg.Timezone)
	cur, ok := mgr.Current()
	if !ok {
		return nil
	}
	fmt.Printf("user:      %s <%s>\n", cur.User.Name, cur.User.Email)
	fmt.Printf("period:    %s\n", cur.Period)

	rec, err := api.TodayAttendance(ctx, cur.Token)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Println("token rejected by backend, run fieldctl login")
	case err != nil:
		obs.Logger().Warn("fetch attendance", zap.Error(err))
	case rec == nil:
		fmt.Println("today:     no attendance recorded")
	default:
		fmt.Printf("today:     %s at %s\n", rec.Period, rec.LoginAt.Format(time.RFC3339))
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	o, err := parseFlags("watch", args, true)
	if err != nil {
		return err
	}
	mgr, _, cleanup, err := newManager(ctx, o)
	if err != nil {
		return err
	}
	defer cleanup()

	if mgr.Restore(ctx) == session.Discard {
		if err := login(ctx, mgr, o); err != nil {
			return err
		}
	}
	if _, err := mgr.RefreshConfig(ctx); err != nil {
		obs.Logger().Warn("refresh org config", zap.Error(err))
	}
	fmt.Printf("watching session, checking every %s\n", o.interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if mgr.State() == session.LoggedOut {
					fmt.Println("session closed")
					return errSessionClosed
				}
			}
		}
	})
	err = g.Wait()
	if errors.Is(err, errSessionClosed) {
		return nil
	}
	return err
}

var errSessionClosed = errors.New("session closed")

func runLogout(ctx context.Context, args []string) error {
	o, err := parseFlags("logout", args, false)
	if err != nil {
		return err
	}
	mgr, _, cleanup, err := newManager(ctx, o)
	if err != nil {
		return err
	}
	defer cleanup()
	mgr.Restore(ctx)
	mgr.Logout(ctx)
	fmt.Println("logged out")
	return nil
}
