package daemon

import (
	"context"

	"github.com/kvaesitso/kvs/internal/actions"
	"github.com/kvaesitso/kvs/internal/api"
	"github.com/kvaesitso/kvs/internal/bus"
	"github.com/kvaesitso/kvs/internal/catalog"
	"github.com/kvaesitso/kvs/internal/config"
	"github.com/kvaesitso/kvs/internal/lock"
	"github.com/kvaesitso/kvs/internal/logging"
	"github.com/kvaesitso/kvs/internal/metrics"
	"github.com/kvaesitso/kvs/internal/openinghours"
	"github.com/kvaesitso/kvs/internal/profile"
	"github.com/kvaesitso/kvs/internal/providers/files"
	"github.com/kvaesitso/kvs/internal/providers/local"
	"github.com/kvaesitso/kvs/internal/providers/osm"
	"github.com/kvaesitso/kvs/internal/providers/websites"
	"github.com/kvaesitso/kvs/internal/providers/wiki"
	"github.com/kvaesitso/kvs/internal/rates"
	"github.com/kvaesitso/kvs/internal/remote"
	"github.com/kvaesitso/kvs/internal/search"
	"github.com/kvaesitso/kvs/internal/status"
	"github.com/kvaesitso/kvs/internal/store"
	"github.com/kvaesitso/kvs/internal/tools"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
	ConfigPath string // optional override; empty = ~/.kvs/config.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideCache,
			provideFetcher,
			provideHolidays,
			provideRepositories,
			provideSearch,
			provideImporter,
			provideRefresher,
			provideLauncher,
			provideMetrics,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, m *status.Machine, logger *zap.Logger) (*store.DB, error) {
	if err := m.Transition(status.Migrating); err != nil {
		return nil, err
	}
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		_ = m.Transition(status.Error)
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		_ = m.Transition(status.Error)
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCache(p Params, cfg *config.Config, logger *zap.Logger) (*remote.Cache, error) {
	dir := cfg.Network.CacheDir
	if dir == "" && cfg.Network.Enabled {
		dir = profile.CacheDir(p.Profile)
	}
	return remote.OpenCache(dir, logger.Named("cache"))
}

func provideFetcher(cfg *config.Config, cache *remote.Cache, logger *zap.Logger) *remote.Fetcher {
	return remote.NewFetcher(remote.Options{
		Enabled:           cfg.Network.Enabled,
		UserAgent:         cfg.Network.UserAgent,
		Timeout:           cfg.Network.Timeout.Duration,
		TTL:               cfg.Network.CacheTTL.Duration,
		RequestsPerSecond: cfg.Network.RequestsPerSecond,
		Burst:             cfg.Network.Burst,
	}, cache, logger.Named("remote"))
}

func provideHolidays(cfg *config.Config) (openinghours.Dates, error) {
	return openinghours.ParseDates(cfg.Holidays)
}

func provideRepositories(cfg *config.Config, db *store.DB, b *bus.Bus, f *remote.Fetcher, holidays openinghours.Dates, logger *zap.Logger) search.Repositories {
	src := local.New(db, b, logger.Named("local"))
	engines := make([]actions.WebSearch, 0, len(cfg.WebSearch))
	for _, e := range cfg.WebSearch {
		engines = append(engines, actions.WebSearch{Name: e.Name, URLTemplate: e.URLTemplate})
	}

	repos := search.Repositories{
		Apps:           src.Apps(),
		Shortcuts:      src.Shortcuts(),
		Contacts:       src.Contacts(),
		Calendar:       src.Calendar(),
		Custom:         src.Custom(),
		Articles:       wiki.New(f, cfg.Wikipedia.BaseURL),
		Websites:       websites.New(f, logger.Named("websites")),
		Actions:        actions.NewBuilder(engines),
		Calculators:    tools.Calculator(),
		UnitConverters: tools.NewConverter(db, b, logger.Named("converter")),
	}
	if len(cfg.Files.Roots) > 0 {
		repos.Files = files.New(files.Options{
			Roots:      cfg.Files.Roots,
			MaxDepth:   cfg.Files.MaxDepth,
			MaxResults: cfg.Files.MaxResults,
		}, logger.Named("files"))
	}
	if cfg.Location.Known() {
		repos.Locations = osm.New(f, osm.Options{
			OverpassURL:  cfg.Location.OverpassURL,
			Latitude:     cfg.Location.Latitude,
			Longitude:    cfg.Location.Longitude,
			RadiusMeters: cfg.Location.RadiusMeters,
			Holidays:     holidays,
		})
	} else {
		logger.Info("no location configured, place search disabled")
	}
	return repos
}

func provideSearch(repos search.Repositories, db *store.DB, cfg *config.Config, logger *zap.Logger) *search.Service {
	return search.NewService(repos, db, search.Config{
		ArticleDelay:  cfg.Search.ArticleDelay.Duration,
		LocationDelay: cfg.Search.LocationDelay.Duration,
	}, logger.Named("search"))
}

func provideImporter(p Params, db *store.DB, b *bus.Bus, m *status.Machine, logger *zap.Logger) *catalog.Importer {
	return catalog.NewImporter(db, b, m, profile.CatalogPath(p.Profile), logger.Named("catalog"))
}

func provideRefresher(cfg *config.Config, db *store.DB, f *remote.Fetcher, b *bus.Bus, logger *zap.Logger) *rates.Refresher {
	return rates.NewRefresher(db, f, b, cfg.Rates.URL, cfg.Rates.Interval.Duration, logger.Named("rates"))
}

func provideLauncher(p Params, cfg *config.Config, svc *search.Service, db *store.DB, b *bus.Bus, m *status.Machine, im *catalog.Importer, holidays openinghours.Dates, logger *zap.Logger) *api.Launcher {
	return api.NewLauncher(svc, db, b, m, im, api.Options{
		Profile:  p.Profile,
		Network:  cfg.Network.Enabled,
		Holidays: holidays,
	}, logger.Named("api"))
}

// provideMetrics returns nil when no metrics address is configured.
func provideMetrics(cfg *config.Config, m *status.Machine, logger *zap.Logger) *metrics.Server {
	if cfg.MetricsAddr == "" {
		return nil
	}
	return metrics.NewServer(cfg.MetricsAddr, func() error {
		switch st := m.Current(); st {
		case status.Ready, status.Degraded:
			return nil
		default:
			return &notServingError{state: st}
		}
	}, logger.Named("metrics"))
}

type notServingError struct {
	state status.State
}

func (e *notServingError) Error() string {
	return "daemon is " + string(e.state)
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	db *store.DB,
	cache *remote.Cache,
	importer *catalog.Importer,
	refresher *rates.Refresher,
	ms *metrics.Server,
	machine *status.Machine,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			srv.Start()

			// A failed import leaves the daemon DEGRADED but serving.
			_, _ = importer.Import(ctx)
			if err := importer.Start(context.Background()); err != nil {
				logger.Warn("catalog watch disabled", zap.Error(err))
			}

			refresher.Start(context.Background())

			if ms != nil {
				if err := ms.Start(); err != nil {
					return err
				}
			}
			logger.Info("daemon started", zap.String("state", string(machine.Current())))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			srv.Stop(ctx)
			refresher.Stop()
			importer.Stop()
			if ms != nil {
				if err := ms.Stop(ctx); err != nil {
					logger.Warn("error stopping metrics server", zap.Error(err))
				}
			}
			if err := cache.Close(); err != nil {
				logger.Warn("error closing cache", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
