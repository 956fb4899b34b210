package lmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/config"
	"github.com/phillip-england/lmsportal/internal/devapi"
	"github.com/phillip-england/lmsportal/internal/envutil"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/portal"
	"github.com/phillip-england/lmsportal/internal/security"
	"github.com/phillip-england/lmsportal/internal/session"
	"github.com/phillip-england/lmsportal/internal/textview"
	"github.com/phillip-england/lmsportal/internal/webapp"
)

var ErrUsage = errors.New("usage")

// CLI runs lmsportal commands against one output and one input stream.
type CLI struct {
	Out        io.Writer
	In         io.Reader
	LoadConfig func() (config.Config, error)
}

func New(out io.Writer, in io.Reader) *CLI {
	return &CLI{Out: out, In: in, LoadConfig: config.Load}
}

func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return New(os.Stdout, os.Stdin).Run(ctx, args)
}

func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return c.runSetup(args[1:])
	case "run":
		return c.runCommand(ctx, args[1:])
	case "register":
		return c.runRegister(ctx, args[1:])
	case "login":
		return c.runLogin(ctx, args[1:])
	case "logout":
		return c.runLogout(ctx, args[1:])
	case "session":
		return c.runSession(ctx)
	case "profile":
		return c.runProfile(ctx, args[1:])
	case "leave":
		return c.runLeave(ctx, args[1:])
	case "hr":
		return c.runHR(ctx, args[1:])
	case "export":
		return c.runExport(ctx, args[1:])
	case "import":
		return c.runImport(ctx, args[1:])
	case "help", "-h", "--help":
		PrintUsage(c.Out)
		return nil
	default:
		return usageError()
	}
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: lmsportal setup [--api-base-url URL] [--env-file .env] [--force]")
	fmt.Fprintln(w, "       lmsportal run web|dev-api|all")
	fmt.Fprintln(w, "       lmsportal register employee|hr --name N --email E --department D [--password P --confirm-password P]")
	fmt.Fprintln(w, "       lmsportal login employee|hr --email E [--password P]")
	fmt.Fprintln(w, "       lmsportal logout [--yes]")
	fmt.Fprintln(w, "       lmsportal session")
	fmt.Fprintln(w, "       lmsportal profile employee|hr")
	fmt.Fprintln(w, "       lmsportal leave submit --start YYYY-MM-DD --end YYYY-MM-DD [--title T] [--description D]")
	fmt.Fprintln(w, "       lmsportal leave status|history")
	fmt.Fprintln(w, "       lmsportal hr pending|employees [--watch]")
	fmt.Fprintln(w, "       lmsportal hr approve|reject <leave-id>")
	fmt.Fprintln(w, "       lmsportal export history|employees --out FILE.xlsx")
	fmt.Fprintln(w, "       lmsportal import leaves --file FILE.xlsx")
}

func usageError() error {
	return fmt.Errorf("%w: lmsportal <setup|run|register|login|logout|session|profile|leave|hr|export|import> [...]", ErrUsage)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return fmt.Errorf("%w: lmsportal %s", ErrUsage, fs.Name())
		}
		return err
	}
	return nil
}

func (c *CLI) runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	apiBase := fs.String("api-base-url", config.DefaultAPIBaseURL, "LMS backend base url")
	envPath := fs.String("env-file", ".env", "path to .env file")
	backend := fs.String("session-backend", config.SessionBackendMemory, "web session backend: memory or redis")
	redisAddr := fs.String("redis-addr", "127.0.0.1:6379", "redis address for the redis session backend")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	check := config.Config{
		APIBaseURL:           *apiBase,
		SessionBackend:       *backend,
		EmployeePollInterval: 5 * time.Second,
	}
	if err := check.Validate(); err != nil {
		return err
	}

	// rewriting keeps the dev api secret so issued tokens stay valid
	secret := security.NewSessionID()
	if *force {
		if existing, err := envutil.ReadDotEnv(*envPath); err == nil && existing["LMS_DEV_API_SECRET"] != "" {
			secret = existing["LMS_DEV_API_SECRET"]
		}
	}

	values := map[string]string{
		"LMS_API_BASE_URL":    *apiBase,
		"LMS_EMP_AUTH_PATH":   config.DefaultEmpAuthPath,
		"LMS_EMP_DASH_PATH":   config.DefaultEmpDashPath,
		"LMS_MAN_AUTH_PATH":   config.DefaultManAuthPath,
		"LMS_MAN_DASH_PATH":   config.DefaultManDashPath,
		"LMS_CLIENT_ADDR":     ":3000",
		"LMS_DEV_API_ADDR":    ":8000",
		"LMS_DEV_API_SECRET":  secret,
		"LMS_SESSION_BACKEND": *backend,
		"LMS_LOG_LEVEL":       "info",
	}
	if *backend == config.SessionBackendRedis {
		values["LMS_REDIS_ADDR"] = *redisAddr
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "wrote %s\n", *envPath)
	return nil
}

func (c *CLI) runCommand(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: lmsportal run web|dev-api|all", ErrUsage)
	}
	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	logger.InitLogging(logger.Options{FilePath: cfg.LogFile, Level: cfg.LogLevel})

	switch args[0] {
	case "web":
		return runWeb(ctx, cfg)
	case "dev-api":
		return runDevAPI(ctx, cfg)
	case "all":
		return runAll(ctx, cfg)
	default:
		return fmt.Errorf("unknown run target %q", args[0])
	}
}

func runWeb(ctx context.Context, cfg config.Config) error {
	sessions, closeSessions, err := webapp.OpenSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeSessions() }()

	webCfg := webapp.ConfigFrom(cfg)
	webCfg.Sessions = sessions
	if err := webapp.Run(ctx, webCfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDevAPI(ctx context.Context, cfg config.Config) error {
	if err := devapi.Run(ctx, devapi.ConfigFrom(cfg)); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context, cfg config.Config) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runDevAPI(ctx, cfg) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runWeb(ctx, cfg)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// workspace is what every session command needs: the terminal viewport, the
// session file and a portal wired to both.
type workspace struct {
	cfg    config.Config
	term   *textview.Terminal
	store  *session.FileStore
	client *api.Client
	portal *portal.Portal
}

func (c *CLI) open() (*workspace, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger.InitLogging(logger.Options{FilePath: cfg.LogFile, Level: level, Console: true})

	w := &workspace{
		cfg:    cfg,
		term:   textview.NewTerminal(c.Out, c.In),
		store:  session.NewFileStore(cfg.SessionFile),
		client: api.NewClient(cfg.RequestTimeout),
	}
	w.portal = portal.New(w.portalOptions(w.term))
	return w, nil
}

func (w *workspace) portalOptions(vp portal.ViewPort) portal.Options {
	return portal.Options{
		Client:       w.client,
		Endpoints:    api.NewEndpoints(w.cfg.APIBaseURL, w.cfg.EmpAuthPath, w.cfg.EmpDashPath, w.cfg.ManAuthPath, w.cfg.ManDashPath),
		Store:        w.store,
		View:         vp,
		PollInterval: w.cfg.EmployeePollInterval,
	}
}

func (w *workspace) close() {
	w.portal.Close()
}

func parseRole(command string, args []string) (api.Role, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: lmsportal %s employee|hr", ErrUsage, command)
	}
	switch args[0] {
	case "employee":
		return api.RoleEmployee, nil
	case "hr":
		return api.RoleManager, nil
	default:
		return "", fmt.Errorf("%w: lmsportal %s employee|hr", ErrUsage, command)
	}
}
