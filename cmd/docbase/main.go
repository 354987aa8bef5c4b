package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/docbase/handlers"
	"github.com/gogotex/docbase/internal/config"
	"github.com/gogotex/docbase/internal/database"
	"github.com/gogotex/docbase/internal/document/handler"
	"github.com/gogotex/docbase/internal/document/repository"
	"github.com/gogotex/docbase/internal/document/service"
	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/gogotex/docbase/internal/oidc"
	"github.com/gogotex/docbase/internal/sessions"
	"github.com/gogotex/docbase/internal/tokens"
	"github.com/gogotex/docbase/pkg/logger"
	"github.com/gogotex/docbase/pkg/metrics"
	"github.com/gogotex/docbase/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

// responses below this size are sent uncompressed
const gzipMinSize = 1024

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	logger.Infof("config loaded: store=%s keycloak=%v mongo=%v redis=%v", cfg.Store.Backend, cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs sessions, nonces, the token blacklist, the shared rate
	// limiter and optionally the record store.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			if cfg.Store.Backend == "redis" {
				logger.Fatalf("redis record store unavailable")
			}
			_ = client.Close()
		} else {
			rdb = client
			defer rdb.Close()
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to Redis at %s", addr)
		}
	}

	var mongoDB *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.Retry(ctx, "MongoDB", 5, time.Second, func(ctx context.Context) (*mongo.Client, error) {
			return database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		})
		if err != nil {
			if cfg.Store.Backend == "mongo" {
				logger.Fatalf("mongo record store unavailable: %v", err)
			}
			logger.Warnf("%v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mongoDB = client.Database(cfg.MongoDB.Database)
		}
	}

	opts := repository.Options{DataDir: cfg.Store.DataDir, Redis: rdb, RedisPrefix: cfg.Store.RedisPrefix}
	if mongoDB != nil {
		opts.Mongo = mongoDB.Collection(cfg.Store.Collection)
	}
	repo, err := repository.New(cfg.Store.Backend, opts)
	if err != nil {
		logger.Fatalf("failed to open record store: %v", err)
	}
	defer repo.Close()
	logger.Infof("record store: %s", repo.Backend())
	svc := service.New(repo)

	var sessionsSvc *sessions.Service
	var nonces sessions.NonceStore
	switch {
	case rdb != nil:
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, ""))
		nonces = sessions.NewRedisNonceStore(rdb, "")
	case mongoDB != nil:
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(mongoDB.Collection("sessions")))
		nonces = sessions.NewMemoryNonceStore()
	default:
		sessionsSvc = sessions.NewService(sessions.NewMemoryRepository())
		nonces = sessions.NewMemoryNonceStore()
	}

	verifier := buildVerifier(ctx, cfg)

	gin.SetMode(ginMode(cfg.Server.Environment))
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors)
	// one limiter keyed by client IP before sign-in and by authority after
	var limit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			limit = middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			limit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{"store": true}
		if _, err := repo.Get(c.Request.Context(), identity.Zero); err != nil && !fault.IsErrNotFound(err) {
			deps["store"] = false
		}
		if rdb != nil {
			deps["redis"] = rdb.Ping(c.Request.Context()).Err() == nil
		}
		ready := true
		for _, ok := range deps {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.RegisterSwagger(r)
	public := r.Group("/")
	signed := []gin.HandlerFunc{middleware.AuthMiddleware(verifier)}
	if limit != nil {
		public.Use(limit)
		signed = append(signed, limit)
	}
	handlers.NewAuthHandler(cfg, sessionsSvc, nonces).Register(public)

	api := r.Group("/api/v1")
	api.GET("/me", append(signed, func(c *gin.Context) {
		a, _ := middleware.Authority(c)
		claims, _ := c.Get(middleware.ClaimsKey)
		c.JSON(http.StatusOK, gin.H{"authority": a, "claims": claims})
	})...)
	handler.RegisterDocumentRoutes(api, svc, signed...)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root, err := middleware.Compress(r, gzipMinSize)
	if err != nil {
		logger.Fatalf("failed to set up compression: %v", err)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("docbase listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// buildVerifier accepts locally issued access tokens, then Keycloak ID tokens
// when Keycloak is configured, then unsigned tokens under ALLOW_INSECURE_TOKEN.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	var chain oidc.Chain
	if cfg.JWT.Secret != "" {
		chain = append(chain, tokens.NewVerifier(cfg))
	}
	if cfg.Keycloak.URL != "" {
		ver, err := oidc.NewKeycloakVerifier(ctx, cfg.Keycloak)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, ver)
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		chain = append(chain, oidc.NewInsecureVerifier())
	}
	return chain
}

func ginMode(env string) string {
	if env == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

// cors is a permissive policy for browser clients in development.
func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
	c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}
