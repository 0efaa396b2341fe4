package server

import (
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/pointjar/internal/auth"
	"github.com/dukerupert/pointjar/internal/backup"
	"github.com/dukerupert/pointjar/internal/config"
	"github.com/dukerupert/pointjar/internal/handler"
	"github.com/dukerupert/pointjar/internal/ledger"
	"github.com/dukerupert/pointjar/internal/middleware"
	"github.com/dukerupert/pointjar/internal/notify"
	"github.com/dukerupert/pointjar/internal/push"
	"github.com/dukerupert/pointjar/internal/store"
	ws "github.com/dukerupert/pointjar/internal/websocket"
)

const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

type Server struct {
	db     *sql.DB
	cfg    *config.Config
	hub    *ws.Hub
	ledger *ledger.Ledger

	authH     *handler.AuthHandler
	rewardH   *handler.RewardHandler
	pointsH   *handler.PointsHandler
	activityH *handler.ActivityHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler
	healthH   *handler.HealthHandler

	userStore     *store.UserStore
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushWorker    *push.Worker
	logger        *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	rewardStore := store.NewRewardStore(db)
	redemptionStore := store.NewRedemptionStore(db)
	pointLogStore := store.NewPointLogStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	// Web Push is optional; the dispatcher must see a nil interface when off.
	var pushWorker *push.Worker
	var pushQueue notify.PushQueue
	var publicKey string
	if cfg.PushEnabled() {
		svc := push.NewService(push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubscriber,
		})
		pushWorker = push.NewWorker(svc, pushStore, logger)
		pushQueue = pushWorker
		publicKey = svc.VAPIDPublicKey()
	}

	dispatcher := notify.New(hub, pushQueue, logger)
	l := ledger.New(db, logger)
	l.SetPublisher(dispatcher)

	backupManager := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		},
		Passphrase:    cfg.BackupPassphrase,
		Hour:          cfg.BackupHour,
		RetentionDays: cfg.BackupRetentionDays,
	}, db, backupStore, logger)

	handlerLogger := logger.With("component", "handler")
	authenticator := auth.NewAuthenticator(userStore, sessionStore)

	return &Server{
		db:            db,
		cfg:           cfg,
		hub:           hub,
		ledger:        l,
		authH:         handler.NewAuthHandler(authenticator, userStore, cfg.CookieSecure, handlerLogger),
		rewardH:       handler.NewRewardHandler(rewardStore, dispatcher, handlerLogger),
		pointsH:       handler.NewPointsHandler(l, handlerLogger),
		activityH:     handler.NewActivityHandler(userStore, pointLogStore, notificationStore, redemptionStore, handlerLogger),
		pushH:         handler.NewPushHandler(pushStore, publicKey, handlerLogger),
		backupH:       handler.NewBackupHandler(backupManager, backupStore, handlerLogger),
		healthH:       handler.NewHealthHandler(db),
		userStore:     userStore,
		sessionStore:  sessionStore,
		rateLimiter:   middleware.NewRateLimiter(loginAttempts, loginWindow),
		backupManager: backupManager,
		pushWorker:    pushWorker,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Ledger returns the balance ledger.
func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushWorker returns the Web Push worker, or nil when push is disabled.
func (s *Server) PushWorker() *push.Worker {
	return s.pushWorker
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(h))
	}

	// Public routes
	loginLimit := middleware.RateLimit(s.rateLimiter, nil)
	mux.Handle("POST /api/login", loginLimit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("GET /api/health", s.healthH.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Session routes
	mux.Handle("POST /api/logout", authed(s.authH.Logout))
	mux.Handle("GET /api/me", authed(s.authH.Me))
	mux.Handle("GET /api/dashboard", authed(s.activityH.Dashboard))
	mux.Handle("GET /api/rewards", authed(s.rewardH.List))
	mux.Handle("POST /api/redeem", authed(s.pointsH.Redeem))
	mux.Handle("GET /api/history", authed(s.activityH.History))
	mux.Handle("GET /api/notifications", authed(s.activityH.Notifications))

	// Push subscriptions
	mux.Handle("GET /api/push/vapid-key", authed(s.pushH.VAPIDKey))
	mux.Handle("POST /api/push/subscribe", authed(s.pushH.Subscribe))
	mux.Handle("GET /api/push/subscriptions", authed(s.pushH.ListSubscriptions))
	mux.Handle("DELETE /api/push/subscriptions/{id}", authed(s.pushH.Unsubscribe))

	// Admin routes
	mux.Handle("POST /api/rewards", admin(s.rewardH.Create))
	mux.Handle("PUT /api/rewards/{id}", admin(s.rewardH.Update))
	mux.Handle("DELETE /api/rewards/{id}", admin(s.rewardH.Delete))
	mux.Handle("POST /api/points", admin(s.pointsH.AdjustPoints))
	mux.Handle("GET /api/admin/redemptions", admin(s.activityH.Redemptions))
	mux.Handle("GET /api/admin/users", admin(s.activityH.Users))
	mux.Handle("GET /api/admin/users/{id}/history", admin(s.activityH.UserHistory))
	mux.Handle("GET /api/admin/backups", admin(s.backupH.List))
	mux.Handle("POST /api/admin/backups", admin(s.backupH.RunNow))

	// WebSocket
	mux.Handle("GET /api/ws", authed(ws.HandleWebSocket(s.hub, originPatterns(s.cfg.FrontendURL))))

	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", spaHandler(s.cfg.StaticDir))
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var h http.Handler = corsHandler(mux)
	h = middleware.Metrics(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

// originPatterns turns the frontend URL into the host pattern the
// WebSocket origin check expects.
func originPatterns(frontendURL string) []string {
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve. Unknown API paths still get a 404.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+strings.TrimPrefix(r.URL.Path, "/"))))
		info, err := os.Stat(name)
		if err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		http.ServeFile(w, r, index)
	})
}
