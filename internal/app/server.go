// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/config"
	"github.com/gidl59/pay4you-cards-luxury4/internal/db"
	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/auth"
	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/photo"
	agentHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/agent"
	authHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/auth"
	cardHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/card"
	wsHandler "github.com/gidl59/pay4you-cards-luxury4/internal/handlers/websocket"
	"github.com/gidl59/pay4you-cards-luxury4/internal/middleware"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/jwt"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/session"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/jsonfile"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/photos"
	agentUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/agent"
	authUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/auth"
	cardUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/card"
	photoUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"
	"github.com/gidl59/pay4you-cards-luxury4/internal/websocket"
	wsHandlers "github.com/gidl59/pay4you-cards-luxury4/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.AppConfig
	engine  *gin.Engine
	handler http.Handler
	logger  *zap.Logger
	hub     *websocket.Hub
	redis   *redis.Client
}

// NewServer wires every component from cfg. Nothing listens until Run.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, logger: logger}

	// ----- Records -----
	scheme, err := address.New(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	agentRepo, err := jsonfile.NewAgentRepository(cfg.AgentsFile, scheme)
	if err != nil {
		return nil, fmt.Errorf("failed to open agent store: %w", err)
	}

	// ----- Photos -----
	photoStore, err := newPhotoStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo store: %w", err)
	}

	// ----- Sessions & Rate Limiter -----
	var (
		sessionStore session.Store
		rateLimiter  session.LoginLimiter
	)
	if cfg.RedisAddr != "" {
		s.redis, err = db.NewRedisClient(ctx, db.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		if err != nil {
			return nil, err
		}
		sessionStore = session.NewRedisStore(s.redis)
		rateLimiter = session.NewRateLimiter(s.redis)
		logger.Info("session store: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		sessionStore = session.NewMemoryStore()
		rateLimiter = session.NewMemoryRateLimiter()
		logger.Info("session store: memory")
	}
	sessionManager := session.NewManager(sessionStore, cfg.SessionTTL)

	// ----- JWT Manager -----
	var jwtManager *jwt.Manager
	if cfg.AuthMode == auth.ModeToken {
		jwtManager, err = jwt.LoadAndBuild(cfg.JWT)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load JWT manager: %w", err)
		}
	}

	secretHash, err := adminSecretHash(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	// ----- Services (Usecases) -----
	authService, err := authUsecase.NewAuthService(cfg.AuthMode, secretHash, sessionManager, jwtManager, rateLimiter, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	photoService := photoUsecase.NewPhotoService(photoStore, photoUsecase.Config{
		MaxBytes:     cfg.PhotoMaxBytes,
		AllowedTypes: cfg.PhotoAllowedTypes,
	}, logger)
	cardService := cardUsecase.NewCardService(agentRepo, cardUsecase.Config{
		BaseURL: cfg.BaseURL,
		QRSize:  cfg.QRSize,
	}, logger)
	agentService := agentUsecase.NewAgentService(agentRepo, scheme, photoService, logger)
	agentService.SetCardURL(cardService.CanonicalURL)

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(cardService.CanonicalURL, logger)
	if err := s.hub.RegisterHandler(wsHandlers.NewAgentHandler(agentService)); err != nil {
		s.Close()
		return nil, err
	}
	agentService.SetPublisher(s.hub)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, cfg.CookieSecure, s.hub, logger),
		AgentHandler:   agentHandler.NewAgentHandler(agentService, logger),
		CardHandler:    cardHandler.NewCardHandler(cardService, photoService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(s.hub, cfg.CORSOrigins, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, logger),
	}

	// ----- Middlewares -----
	s.engine = gin.New()
	s.engine.HandleMethodNotAllowed = true
	// login throttling keys on ClientIP, so forwarded headers count only
	// from configured proxies
	if err := s.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	s.engine.MaxMultipartMemory = cfg.PhotoMaxBytes + 1<<20
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	SetupRouter(s.engine, logger, handlers)

	s.handler = s.engine
	if len(cfg.CORSOrigins) > 0 {
		s.handler = newCORS(cfg.CORSOrigins).Handler(s.engine)
	}

	logger.Info("server configured",
		zap.String("id_scheme", scheme.Name()),
		zap.String("auth_mode", string(cfg.AuthMode)),
		zap.String("agents_file", agentRepo.Path()),
		zap.String("photo_backend", cfg.PhotoBackend),
	)
	return s, nil
}

// Handler is the full HTTP stack, CORS included.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is canceled, then drains connections for up to the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("base_url", s.cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

// Close releases external connections.
func (s *Server) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

func newPhotoStore(cfg config.AppConfig) (photo.Store, error) {
	if cfg.PhotoBackend == config.PhotoBackendS3 {
		return photos.NewS3Store(photos.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			Prefix:    cfg.S3.Prefix,
		})
	}
	return photos.NewLocalStore(cfg.UploadDir)
}

func adminSecretHash(cfg config.AppConfig) ([]byte, error) {
	if cfg.AdminSecretHash != "" {
		return []byte(cfg.AdminSecretHash), nil
	}
	hash, err := authUsecase.HashSecret(cfg.AdminSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin secret: %w", err)
	}
	return hash, nil
}

func newCORS(origins []string) *cors.Cors {
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
