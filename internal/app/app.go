// Package app wires configuration into the clip services and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"clipmaster/config"
	_ "clipmaster/docs"
	"clipmaster/handlers"
	"clipmaster/internal/auth"
	"clipmaster/internal/clipstore"
	"clipmaster/internal/dispatch"
	"clipmaster/internal/download"
	"clipmaster/internal/finalize"
	"clipmaster/internal/healthsrv"
	"clipmaster/internal/ingest"
	"clipmaster/internal/objectstore"
	"clipmaster/internal/realtime"
	"clipmaster/internal/worker"
	"clipmaster/middleware"
)

// Application holds the wired services of one process.
type Application struct {
	cfg *config.Config
	log *logrus.Logger

	store   clipstore.Repository
	Clips   clipstore.Repository
	Hub     *realtime.Hub
	Uploads *objectstore.Tracker

	Ingest    *ingest.Coordinator
	Downloads *download.Retriever
	Finalizer *finalize.Finalizer
	Identity  auth.IdentityProvider

	dispatcher *worker.Dispatcher
	closers    []func() error
}

// New builds every service named by cfg. Nothing listens until Serve.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	a := &Application{cfg: cfg, log: logger}

	var supaClient *supa.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceKey != "" {
		client, err := config.NewSupabaseClient(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		supaClient = client
	}

	store, err := a.openClipStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	objects, err := a.openObjectStore(ctx, supaClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Hub = realtime.NewHub(cfg.Realtime.Buffer, logger)
	a.closers = append(a.closers, func() error { a.Hub.Close(); return nil })
	a.Clips = realtime.NewPublishingRepository(store, a.Hub)
	a.Uploads = objectstore.NewTracker(cfg.Uploads.ProgressRetention)

	announcer, err := a.openAnnouncer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Ingest = ingest.NewCoordinator(objects, a.Clips, logger,
		ingest.WithAnnouncer(announcer),
		ingest.WithTracker(a.Uploads),
	)
	a.Downloads = download.NewRetriever(nil, logger)
	a.Finalizer = finalize.NewFinalizer(a.Clips, logger)

	switch {
	case cfg.Supabase.JWTSecret != "":
		a.Identity = auth.NewJWTVerifier(cfg.Supabase.JWTSecret, cfg.Supabase.JWTAudience)
	case supaClient != nil:
		a.Identity = auth.NewSupabaseProvider(supaClient)
	}

	return a, nil
}

func (a *Application) openClipStore(ctx context.Context) (clipstore.Repository, error) {
	cs := a.cfg.ClipStore
	switch cs.Backend {
	case "supabase":
		client, err := clipstore.NewPostgrestClient(a.cfg.Supabase.URL, a.cfg.Supabase.ServiceKey)
		if err != nil {
			return nil, err
		}
		return clipstore.NewPostgrestRepository(client, cs.Table, a.log), nil
	case "postgres", "sqlite":
		dialect := clipstore.DialectPostgres
		if cs.Backend == "sqlite" {
			dialect = clipstore.DialectSQLite
		}
		repo, err := clipstore.OpenSQL(dialect, cs.DSN, cs.Table, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		if cs.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown clip store backend %q", cs.Backend)
	}
}

func (a *Application) openObjectStore(ctx context.Context, supaClient *supa.Client) (objectstore.Store, error) {
	ob := a.cfg.ObjectStore
	switch ob.Backend {
	case "supabase":
		if supaClient == nil {
			return nil, errors.New("supabase object store needs supabase url and service key")
		}
		return objectstore.NewSupabaseStore(supaClient.Storage, ob.Bucket, a.log), nil
	case "s3":
		return objectstore.NewS3Store(ctx, ob.Bucket, ob.Region, ob.PublicBaseURL, a.log)
	case "minio":
		return objectstore.NewMinioStore(ctx, objectstore.MinioOptions{
			Endpoint:      ob.Endpoint,
			AccessKey:     ob.AccessKey,
			SecretKey:     ob.SecretKey,
			Bucket:        ob.Bucket,
			UseSSL:        ob.UseSSL,
			PublicBaseURL: ob.PublicBaseURL,
		}, a.log)
	default:
		return nil, fmt.Errorf("unknown object store backend %q", ob.Backend)
	}
}

func (a *Application) openAnnouncer(ctx context.Context) (dispatch.Announcer, error) {
	d := a.cfg.Dispatch
	if d.SQSQueueURL == "" {
		a.log.Info("No worker queue configured; clips wait for the worker to poll")
		return dispatch.Noop{}, nil
	}

	sqs, err := dispatch.NewSQSAnnouncer(ctx, d.SQSQueueURL, d.Region, a.log)
	if err != nil {
		return nil, err
	}
	a.dispatcher = worker.NewDispatcher(d.Workers, d.QueueSize, a.log)
	a.dispatcher.Run()
	a.closers = append(a.closers, func() error { a.dispatcher.Stop(); return nil })
	return dispatch.NewBackground(a.dispatcher, sqs, a.log), nil
}

// HTTP builds the fiber app serving the API.
func (a *Application) HTTP() (*fiber.App, error) {
	if a.Identity == nil {
		return nil, errors.New("no identity provider: set supabase jwt secret or supabase url and service key")
	}

	h := handlers.NewApplicationHandler(a.log, a.Clips, a.Ingest, a.Downloads, a.Finalizer, a.Hub, a.Uploads)
	if a.cfg.Realtime.Keepalive > 0 {
		h.Keepalive = a.cfg.Realtime.Keepalive
	}

	app := fiber.New(fiber.Config{
		AppName:               "clipmaster",
		BodyLimit:             a.cfg.Server.BodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler(a.log),
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: a.cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.UploadIDHeader,
	}))
	app.Use(middleware.RequestLogger(a.log))
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	h.RegisterRoutes(app, a.Identity, a.cfg.Server.WorkerServiceKey)
	return app, nil
}

// Serve runs the HTTP API, the health server and the change watcher until
// ctx is done, then shuts them down.
func (a *Application) Serve(ctx context.Context) error {
	app, err := a.HTTP()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 3)
	running := 0

	var health *healthsrv.Server
	if a.cfg.Server.HealthPort > 0 {
		health = healthsrv.New(a.log)
		running++
		go func() {
			err := health.ListenAndServe(":" + strconv.Itoa(a.cfg.Server.HealthPort))
			if err != nil {
				cancel()
			}
			errc <- err
		}()
	}

	if a.cfg.Realtime.PollInterval > 0 {
		watcher := realtime.NewWatcher(a.store, a.Hub, a.cfg.Realtime.PollInterval, time.Now(), a.log)
		running++
		go func() {
			err := watcher.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			errc <- err
		}()
	}

	running++
	go func() {
		addr := ":" + strconv.Itoa(a.cfg.Server.Port)
		a.log.WithField("addr", addr).Info("Starting clipmaster API")
		if health != nil {
			health.SetServing(true)
		}
		err := app.Listen(addr)
		if err != nil {
			cancel()
		}
		errc <- err
	}()

	<-ctx.Done()
	a.log.Info("Shutting down")
	if health != nil {
		health.SetServing(false)
	}
	// Open event streams only end once the hub closes.
	a.Hub.Close()
	shutdownErr := app.ShutdownWithTimeout(10 * time.Second)
	if health != nil {
		health.Stop()
	}

	var errs []error
	for i := 0; i < running; i++ {
		if err := <-errc; err != nil {
			errs = append(errs, err)
		}
	}
	if shutdownErr != nil {
		errs = append(errs, shutdownErr)
	}
	return errors.Join(errs...)
}

// Close releases every backend in reverse order of opening.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
