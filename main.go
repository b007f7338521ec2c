// Package main implements goforwarded, an HTTP service that parses the RFC 7239
// Forwarded header of every request and echoes what it learned: the hops, the
// resolved client address and the header value it would forward itself.
//
// Usage:
//
//	goforwarded --port 8000 --trust-proxy
//	goforwarded --db stats.db --admin --log-format json
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/rampantspark/goforwarded/internal/admin"
	"github.com/rampantspark/goforwarded/internal/clientip"
	"github.com/rampantspark/goforwarded/internal/handler"
	"github.com/rampantspark/goforwarded/internal/logging"
	"github.com/rampantspark/goforwarded/internal/metrics"
	"github.com/rampantspark/goforwarded/internal/middleware"
	"github.com/rampantspark/goforwarded/internal/random"
	"github.com/rampantspark/goforwarded/internal/ratelimit"
	"github.com/rampantspark/goforwarded/internal/server"
	"github.com/rampantspark/goforwarded/internal/stats"
	"github.com/rampantspark/goforwarded/internal/ui"
)

const (
	defaultPort        = "8000"
	defaultRate        = 10
	defaultBurst       = 20
	defaultMetricsPath = "/metrics"

	// instanceIDLength is the number of characters after the leading "_".
	instanceIDLength = 12
)

// options holds the parsed command line.
type options struct {
	host        string
	port        string
	trustProxy  bool
	dbPath      string
	rate        float64
	burst       int
	cacheSize   int
	logLevel    string
	logFormat   string
	admin       bool
	https       bool
	metricsPath string
	instanceID  string
	server      server.Config
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("goforwarded", flag.ContinueOnError)
	fs.StringVar(&opts.host, "host", "", "interface to bind, empty for all")
	fs.StringVarP(&opts.port, "port", "p", defaultPort, "port to listen on")
	fs.BoolVar(&opts.trustProxy, "trust-proxy", false, "take the client address from the first Forwarded hop")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database for request statistics, in memory when empty")
	fs.Float64Var(&opts.rate, "rate", defaultRate, "requests per second per client, 0 disables rate limiting")
	fs.IntVar(&opts.burst, "burst", defaultBurst, "rate limit burst per client")
	fs.IntVar(&opts.cacheSize, "cache-size", clientip.DefaultCacheSize, "number of parsed Forwarded values to cache")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", logging.FormatHuman, "log format: human, text, json")
	fs.BoolVar(&opts.admin, "admin", false, "serve the token protected statistics dashboard")
	fs.BoolVar(&opts.https, "https", false, "mark the admin cookie Secure, for use behind a TLS terminating proxy")
	fs.StringVar(&opts.metricsPath, "metrics-path", defaultMetricsPath, "path of the Prometheus endpoint")
	fs.StringVar(&opts.instanceID, "instance-id", "", "obfuscated identifier used as this instance's by node, random when empty")
	fs.DurationVar(&opts.server.ReadTimeout, "read-timeout", server.DefaultReadTimeout, "maximum duration for reading a request")
	fs.DurationVar(&opts.server.WriteTimeout, "write-timeout", server.DefaultWriteTimeout, "maximum duration for writing a response")
	fs.DurationVar(&opts.server.IdleTimeout, "idle-timeout", server.DefaultIdleTimeout, "keep-alive idle timeout")
	fs.DurationVar(&opts.server.ShutdownTimeout, "shutdown-timeout", server.DefaultShutdownTimeout, "grace period for in-flight requests on shutdown")
	fs.IntVar(&opts.server.MaxHeaderBytes, "max-header-bytes", server.DefaultMaxHeaderBytes, "maximum size of request headers")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.server.Host = opts.host
	opts.server.Port = opts.port
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *options) validate() error {
	var err error
	err = multierr.Append(err, o.server.Validate())
	if o.rate < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid rate: %v (must not be negative)", o.rate))
	}
	if o.rate > 0 && o.burst < 1 {
		err = multierr.Append(err, fmt.Errorf("invalid burst: %d (must be at least 1)", o.burst))
	}
	if o.metricsPath == "" || o.metricsPath[0] != '/' || o.metricsPath == "/" {
		err = multierr.Append(err, fmt.Errorf("invalid metrics path: %q (must start with / and not be the root)", o.metricsPath))
	}
	if o.instanceID != "" && (len(o.instanceID) < 2 || o.instanceID[0] != '_') {
		err = multierr.Append(err, fmt.Errorf("invalid instance id: %q (must start with _)", o.instanceID))
	}
	return err
}

func main() {
	printer := ui.NewPrinter(os.Stdout)

	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		printer.PrintError("Invalid configuration", err)
		os.Exit(2)
	}

	if err := run(opts, printer); err != nil {
		printer.PrintError("Server failed", err)
		os.Exit(1)
	}
}

// app holds the components that need closing on shutdown.
type app struct {
	stats   *stats.Manager
	limiter *ratelimit.Limiter
}

func (a *app) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	var err error
	if a.stats != nil {
		err = multierr.Append(err, a.stats.Close())
	}
	return err
}

func run(opts *options, printer *ui.Printer) (err error) {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, level, opts.logFormat)
	if err != nil {
		return err
	}

	a := &app{}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	var db *stats.Database
	if opts.dbPath != "" {
		db, err = stats.NewDatabase(opts.dbPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open stats database: %w", err)
		}
	}
	a.stats = stats.NewManager(db, logger)

	resolver, err := clientip.NewResolver(opts.trustProxy, opts.cacheSize, logger)
	if err != nil {
		return err
	}

	instanceID := opts.instanceID
	if instanceID == "" {
		instanceID, err = random.NewSource("").Identifier(instanceIDLength)
		if err != nil {
			return fmt.Errorf("failed to generate instance id: %w", err)
		}
	}

	m := metrics.New()
	echo, err := handler.New(resolver, a.stats, m, instanceID, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+opts.metricsPath, m.Handler())
	mux.HandleFunc("/", echo.Handle)

	var adminHandler *admin.Handler
	if opts.admin {
		auth, err := admin.NewAuthenticator(opts.https)
		if err != nil {
			return err
		}
		adminHandler = admin.NewHandler(auth, a.stats, resolver.GetClientIP, logger)
		adminHandler.Register(mux)
	}

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RecoverPanic(logger),
	}
	if opts.rate > 0 {
		a.limiter = ratelimit.NewLimiter(opts.rate, opts.burst)
		chain = append(chain, middleware.RateLimit(a.limiter, resolver.GetClientKey, m.IncRateLimited, logger))
	}

	srv := server.New(&opts.server, middleware.Chain(mux, chain...), logger)

	baseURL := fmt.Sprintf("http://localhost:%s", opts.port)
	if opts.https {
		baseURL = fmt.Sprintf("https://localhost:%s", opts.port)
	}
	info := ui.StartupInfo{
		Addr:           opts.server.Addr(),
		InstanceID:     instanceID,
		TrustProxy:     opts.trustProxy,
		MaxHeaderBytes: opts.server.MaxHeaderBytes,
		RateLimit:      ui.BuildRateLimitSummary(opts.rate, opts.burst),
		PersistMode:    ui.BuildPersistModeSummary(opts.dbPath),
		MetricsPath:    opts.metricsPath,
	}
	if adminHandler != nil {
		info.AdminLoginURL = adminHandler.LoginURL(baseURL)
		info.AdminURL = adminHandler.AdminURL(baseURL)
	}
	printer.PrintBanner()
	printer.PrintStartupInfo(info)

	logger.Info("Server starting",
		"addr", opts.server.Addr(),
		"instance_id", instanceID,
		"trust_proxy", opts.trustProxy,
		"persistent", a.stats.Persistent())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := srv.Run(ctx); err != nil {
		return err
	}
	printer.PrintShutdown()
	logger.Info("Server stopped", "uptime", time.Since(start).Round(time.Second))
	printer.PrintShutdownComplete()
	return nil
}
