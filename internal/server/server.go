package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/socialnet/apiserver/config"
	"github.com/socialnet/apiserver/internal/db"
	"github.com/socialnet/apiserver/internal/events"
	"github.com/socialnet/apiserver/internal/handlers"
	"github.com/socialnet/apiserver/internal/logging"
	"github.com/socialnet/apiserver/internal/mq"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/internal/storage"
	"github.com/socialnet/apiserver/internal/store"
	"github.com/socialnet/apiserver/internal/store/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Repositories is the persistence layer behind the API.
type Repositories struct {
	Users    services.UserRepository
	Posts    services.PostRepository
	Comments services.CommentRepository
}

// Deps groups everything the router needs. Objects is required; Publisher
// may be nil.
type Deps struct {
	Config    config.Config
	Repos     Repositories
	Objects   services.ObjectStore
	Publisher services.EventPublisher
	Log       *zap.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []func() error
	log        *zap.Logger
}

// New opens the configured store, object storage and queue and builds the
// HTTP server on top of them.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if log == nil {
		log = logging.New(cfg.Log)
	}

	srv := &Server{log: log}
	repos, closeRepos, err := OpenRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	srv.closers = append(srv.closers, closeRepos)

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		srv.close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	if queue != nil {
		srv.closers = append(srv.closers, queue.Close)
		if cfg.MQ.Backend == config.MQMemory {
			go consumeInProcess(ctx, queue, objects, cfg.Storage.Folder, log)
		}
	}

	router := NewRouter(Deps{
		Config:    cfg,
		Repos:     repos,
		Objects:   objects,
		Publisher: events.NewPublisher(queue, log),
		Log:       log,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     logging.StdLogger(log.Named("http"), zapcore.ErrorLevel),
	}
	return srv, nil
}

// OpenRepositories connects to the backend selected by DB_DRIVER. The
// returned func releases the connection.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, func() error, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return Repositories{}, nil, fmt.Errorf("open postgres: %w", err)
		}
		return Repositories{
			Users:    store.NewUserRepository(conn),
			Posts:    store.NewPostRepository(conn),
			Comments: store.NewCommentRepository(conn),
		}, conn.Close, nil
	case config.DriverMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, nil, fmt.Errorf("open mongo: %w", err)
		}
		closer := func() error { return client.Disconnect(context.Background()) }
		return Repositories{
			Users:    store.NewMongoUserRepository(database),
			Posts:    store.NewMongoPostRepository(database),
			Comments: store.NewMongoCommentRepository(database),
		}, closer, nil
	case config.DriverMemory:
		mem := memory.New()
		return Repositories{
			Users:    mem.Users(),
			Posts:    mem.Posts(),
			Comments: mem.Comments(),
		}, func() error { return nil }, nil
	default:
		return Repositories{}, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(deps Deps) *chi.Mux {
	log := deps.Log
	if log == nil {
		log = logging.Discard()
	}

	userService := services.NewUserService(deps.Repos.Users, deps.Repos.Posts, deps.Publisher)
	postService := services.NewPostService(deps.Repos.Posts, deps.Repos.Comments, deps.Repos.Users, deps.Publisher)
	commentService := services.NewCommentService(deps.Repos.Comments, deps.Repos.Posts, deps.Repos.Users, deps.Publisher)
	mediaService := services.NewMediaService(deps.Objects, deps.Config.Storage.Folder)

	authHandler := handlers.NewAuthHandler(userService, deps.Config.Auth, deps.Config.IsProduction(), log)
	userHandler := handlers.NewUserHandler(userService, postService, log)
	postHandler := handlers.NewPostHandler(postService, log)
	commentHandler := handlers.NewCommentHandler(commentService, log)
	uploadHandler := handlers.NewUploadHandler(mediaService, deps.Config.Storage.MaxBytes, log)

	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logging.StdLogger(log.Named("access"), zapcore.InfoLevel),
		NoColor: true,
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		requestLogger,
		middleware.Timeout(60*time.Second),
		authHandler.Authenticate,
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userHandler)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postHandler, commentHandler)
	})
	router.Route("/upload", func(r chi.Router) {
		handlers.UploadRouter(r, uploadHandler)
	})
	return router
}

// consumeInProcess runs the media cleaner against an in-process queue so
// MQ_BACKEND=memory behaves like a deployment with a worker.
func consumeInProcess(ctx context.Context, queue *mq.MQ, objects *storage.Storage, folder string, log *zap.Logger) {
	cleaner := events.NewMediaCleaner(services.NewMediaService(objects, folder), log)
	err := queue.Subscribe(ctx, events.Channel, cleaner.Handle)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, mq.ErrBrokerClosed) {
		log.Warn("in-process event consumer stopped", zap.Error(err))
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn("close backend", zap.Error(err))
		}
	}
	s.closers = nil
}
