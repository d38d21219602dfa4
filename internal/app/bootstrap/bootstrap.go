package bootstrap

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pagecraft/app/internal/data/database"
	"pagecraft/app/internal/data/migrations"
	datapublishing "pagecraft/app/internal/data/publishing"
	"pagecraft/app/internal/domain/publishing"
	infraredis "pagecraft/app/internal/infrastructure/redis"
	"pagecraft/app/internal/platform/besteffort"
	"pagecraft/app/internal/platform/config"
	presentationhttp "pagecraft/app/internal/presentation/http"
)

// VisitBackend records and aggregates visits.
type VisitBackend interface {
	publishing.VisitRecorder
	publishing.VisitCounter
}

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Stores groups the persistence adapters shared by the server and the admin CLI.
type Stores struct {
	Database *gorm.DB
	Pages    *datapublishing.PageRepository
	Domains  *datapublishing.DomainRegistry
	Projects *datapublishing.ProjectStore
	Visits   VisitBackend

	closers []func() error
}

type Result struct {
	Resolver   *publishing.Resolver
	Writer     *publishing.Writer
	Analytics  *publishing.Analytics
	HTTPServer *presentationhttp.Server
	Stores     *Stores
	Dispatcher *besteffort.Dispatcher
	Shutdown   func(ctx context.Context) error
}

// OpenStores opens the database, applies migrations and builds the repositories.
func OpenStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Stores, error) {
	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		Path:   cfg.DBPath,
		DSN:    cfg.DatabaseURL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	stores := &Stores{Database: db}
	stores.closers = append(stores.closers, func() error { return database.Close(db) })

	closeOnError := func(wrapper error) (*Stores, error) {
		if closeErr := stores.Close(); closeErr != nil && logger != nil {
			logger.WithError(closeErr).Error("closing stores after bootstrap failure")
		}
		return nil, wrapper
	}

	if err := migrations.MigratePublishing(ctx, db, logger); err != nil {
		return closeOnError(eris.Wrap(err, "running publishing migrations"))
	}

	if stores.Pages, err = datapublishing.NewPageRepository(db, logger); err != nil {
		return closeOnError(eris.Wrap(err, "creating page repository"))
	}
	if stores.Domains, err = datapublishing.NewDomainRegistry(db, logger); err != nil {
		return closeOnError(eris.Wrap(err, "creating domain registry"))
	}
	if stores.Projects, err = datapublishing.NewProjectStore(db); err != nil {
		return closeOnError(eris.Wrap(err, "creating project store"))
	}

	switch cfg.VisitStore {
	case config.VisitStoreRedis:
		client, err := infraredis.Connect(ctx, infraredis.ConnectOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return closeOnError(eris.Wrap(err, "connecting visit counter"))
		}
		stores.closers = append(stores.closers, client.Close)

		counter, err := infraredis.NewVisitCounter(client, logger)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating redis visit counter"))
		}
		stores.Visits = counter
	default:
		visits, err := datapublishing.NewVisitStore(db, logger)
		if err != nil {
			return closeOnError(eris.Wrap(err, "creating visit store"))
		}
		stores.Visits = visits
	}

	return stores, nil
}

// Close releases every backend in reverse order of acquisition.
func (s *Stores) Close() error {
	if s == nil {
		return nil
	}

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	return errors.Join(errs...)
}

// Build composes the publishing application layers and returns the constructed components.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	cfg := deps.Config

	hosts, err := publishing.NewHostPolicy(cfg.DefaultHost, cfg.HostAliases...)
	if err != nil {
		return Result{}, eris.Wrap(err, "building host policy")
	}

	stores, err := OpenStores(ctx, cfg, deps.Logger)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := stores.Close(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing stores after bootstrap failure")
		}
		return Result{}, wrapper
	}

	dispatcher := besteffort.New(besteffort.Options{
		Logger:      deps.Logger,
		Concurrency: cfg.Notify.Concurrency,
		Timeout:     cfg.Notify.Timeout,
	})

	resolver, err := publishing.NewResolver(publishing.ResolverOptions{
		Repository: stores.Pages,
		Hosts:      hosts,
		Visits:     stores.Visits,
		Dispatcher: dispatcher,
		Logger:     deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating resolver"))
	}

	writer, err := publishing.NewWriter(publishing.WriterOptions{
		Repository: stores.Pages,
		Hosts:      hosts,
		Domains:    stores.Domains,
		Projects:   stores.Projects,
		Dispatcher: dispatcher,
		Logger:     deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating writer"))
	}

	analytics, err := publishing.NewAnalytics(publishing.AnalyticsOptions{
		Repository: stores.Pages,
		Counter:    stores.Visits,
		Recorder:   stores.Visits,
		Hosts:      hosts,
		Dispatcher: dispatcher,
		Logger:     deps.Logger,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating analytics"))
	}

	db := stores.Database
	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		Resolver:  resolver,
		Publisher: writer,
		Analytics: analytics,
		Domains:   stores.Domains,
		Hosts:     hosts,
		HealthCheck: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
		Logger:     deps.Logger,
		SentryHub:  deps.SentryHub,
		APIToken:   cfg.APIToken,
		AdminToken: cfg.AdminToken,
		RateLimiter: presentationhttp.RateLimiterSettings{
			Burst:             cfg.RateLimit.Burst,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	shutdown := func(ctx context.Context) error {
		httpServer.Close()

		var errs []error
		if err := dispatcher.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := stores.Close(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}

	return Result{
		Resolver:   resolver,
		Writer:     writer,
		Analytics:  analytics,
		HTTPServer: httpServer,
		Stores:     stores,
		Dispatcher: dispatcher,
		Shutdown:   shutdown,
	}, nil
}
