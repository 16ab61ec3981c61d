package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/mkrupp/authui/internal/infra/config"
	"github.com/mkrupp/authui/internal/infra/logging"
	"github.com/mkrupp/authui/internal/infra/transport/http"
	"github.com/mkrupp/authui/internal/repo/navstate"
	"github.com/mkrupp/authui/internal/svc/authclient"
	"github.com/mkrupp/authui/internal/svc/authui"
)

const (
	appName = "authui"
	svcName = "frontend"
)

type Config struct {
	config.EnvConfig

	Log        logging.LoggerConfig        `envPrefix:"LOG_"`
	UI         authui.UIConfig             `envPrefix:"UI_"`
	HTTP       authui.HTTPTransportConfig  `envPrefix:"HTTP_"`
	AuthClient authclient.HTTPClientConfig `envPrefix:"AUTH_CLIENT_"`
	NavState   navstate.Config             `envPrefix:"NAVSTATE_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := config.LoadDotEnv(".env", "/etc/authui/.env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.authui")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	repoFactory, err := navstate.RepositoryFactoryFor(cfg.NavState)
	if err != nil {
		return fmt.Errorf("navigation state backend: %w", err)
	}

	navStateRepo, err := repoFactory()
	if err != nil {
		return fmt.Errorf("new navigation state repo: %w", err)
	}

	defer func() {
		if cerr := navStateRepo.Close(); cerr != nil {
			log.ErrorContext(ctx, "close navigation state repo failed", "error", cerr)
		}
	}()

	authClient := authclient.NewHTTPClient(cfg.AuthClient, nil, nil)
	linker := authui.NewNavigationLinker(navStateRepo, cfg.UI.NavStateTTL)
	registry := authui.NewViewRegistry(authClient, linker, cfg.UI)

	httpTransport, err := authui.NewHTTPTransport(registry, linker, authClient, cfg.UI, cfg.HTTP)
	if err != nil {
		return fmt.Errorf("new http transport: %w", err)
	}

	var wg sync.WaitGroup

	workerCtx, stopWorkers := context.WithCancel(ctx)

	wg.Add(2)

	go func() {
		defer wg.Done()

		registry.Run(workerCtx, cfg.UI.SweepInterval)
	}()

	go func() {
		defer wg.Done()

		navstate.RunPurger(workerCtx, navStateRepo, cfg.UI.SweepInterval)
	}()

	log.InfoContext(ctx, "starting",
		logging.Group("config",
			"addr", cfg.HTTP.ServerAddr,
			"backend", cfg.AuthClient.BaseURL,
			"navstate", cfg.NavState.Backend,
		))

	err = http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig)

	// No sweep or purge may run against the closed repo.
	stopWorkers()
	wg.Wait()

	if err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
