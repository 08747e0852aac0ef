package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/estuportal/portalchat/internal/config"
	"github.com/estuportal/portalchat/internal/logging"
	"github.com/estuportal/portalchat/internal/messenger"
	"github.com/estuportal/portalchat/internal/store"
	"github.com/estuportal/portalchat/internal/store/portalapi"
	"github.com/estuportal/portalchat/internal/store/sqlite"
)

// annotationLogToFile marks commands that own the terminal; their logs
// default to a file under the data directory.
const annotationLogToFile = "portalchat/log-to-file"

const defaultLogFile = "portalchat.log"

// app is the state shared by every command of one invocation.
type app struct {
	configFile string

	loader    *config.Loader
	cfg       *config.Config
	logCloser io.Closer
	registry  *prometheus.Registry
	metrics   *messenger.Metrics
	server    *metricsServer
	logger    zerolog.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if a.configFile != "" {
		loader.SetConfigFile(a.configFile)
	}
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := loader.BindFlag(key, flag); err != nil {
			return Exitf(ExitCodeFailure, "bind --%s: %w", name, err)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return Exitf(ExitCodeFailure, "%w", err)
	}
	a.loader = loader
	a.cfg = cfg

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cmd.ErrOrStderr(),
		File:         cfg.Logging.File,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	if logCfg.File == "" && cmd.Annotations[annotationLogToFile] == "true" {
		logCfg.File = filepath.Join(cfg.DataDir, defaultLogFile)
	}
	closer, err := logging.Init(logCfg)
	if err != nil {
		return Exitf(ExitCodeFailure, "init logging: %w", err)
	}
	a.logCloser = closer
	a.logger = logging.Component("cli")

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := messenger.NewMetrics(a.registry)
	if err != nil {
		return Exitf(ExitCodeFailure, "register metrics: %w", err)
	}
	a.metrics = metrics

	if cfg.Metrics.Listen != "" {
		server, err := startMetricsServer(cfg.Metrics.Listen, a.registry)
		if err != nil {
			return Exitf(ExitCodeFailure, "metrics server: %w", err)
		}
		a.server = server
		a.logger.Info().Str("addr", server.Addr()).Msg("serving metrics")
	}

	a.logger.Debug().
		Str("config", loader.ConfigFileUsed()).
		Str("backend", cfg.Store.Backend).
		Str("user", cfg.User.Identity).
		Msg("configuration loaded")
	return nil
}

func (a *app) teardown() error {
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.logger.Warn().Err(err).Msg("metrics server shutdown failed")
		}
		a.server = nil
	}
	if a.logCloser != nil {
		err := a.logCloser.Close()
		a.logCloser = nil
		return err
	}
	return nil
}

// openStore opens the configured message store. The returned close
// function is never nil.
func (a *app) openStore(ctx context.Context) (store.MessageStore, func(), error) {
	switch a.cfg.Store.Backend {
	case config.BackendSQLite:
		if a.cfg.Store.SQLitePath == "" {
			if err := a.cfg.EnsureDirectories(); err != nil {
				return nil, nil, Exitf(ExitCodeFailure, "create data dir: %w", err)
			}
		}
		path := a.cfg.DatabasePath()
		st, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, Exitf(ExitCodeFailure, "open %s: %w", path, err)
		}
		return st, a.closer(st), nil
	case config.BackendHTTP:
		client, err := portalapi.New(portalapi.Config{
			BaseURL:   a.cfg.Store.BaseURL,
			Role:      a.cfg.User.Role,
			Timeout:   a.cfg.Store.Timeout,
			RateLimit: a.cfg.Store.RateLimit,
		})
		if err != nil {
			return nil, nil, Exitf(ExitCodeFailure, "portal client: %w", err)
		}
		return client, func() {}, nil
	default:
		return nil, nil, Exitf(ExitCodeFailure, "unknown store backend %q", a.cfg.Store.Backend)
	}
}

func (a *app) closer(c store.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close store failed")
		}
	}
}

// newMessenger opens the store and wires a Messenger for the configured
// identity.
func (a *app) newMessenger(ctx context.Context) (*messenger.Messenger, func(), error) {
	if err := a.cfg.RequireIdentity(); err != nil {
		return nil, nil, Exitf(ExitCodeUsage, "%w", err)
	}
	st, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	m, err := messenger.New(st, a.cfg.User.Identity, messenger.Options{
		PollInterval: a.cfg.Sync.PollInterval,
		Metrics:      a.metrics,
	})
	if err != nil {
		closeStore()
		return nil, nil, Exitf(ExitCodeFailure, "%w", err)
	}
	return m, closeStore, nil
}

func (a *app) sessionStore() *config.SessionStore {
	return config.NewSessionStore(a.cfg.SessionPath())
}
