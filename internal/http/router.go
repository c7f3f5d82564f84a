package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/budgetease/api/internal/access"
	"github.com/budgetease/api/internal/category"
	"github.com/budgetease/api/internal/config"
	httpmiddleware "github.com/budgetease/api/internal/http/middleware"
	"github.com/budgetease/api/internal/nav"
	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/service"
	"github.com/budgetease/api/internal/storage"
	"github.com/budgetease/api/internal/workflow"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	users         *service.UserService
	account       *service.AccountService
	access        *access.Service
	categories    *category.Service
	storage       storage.Uploader
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter renvoie le routeur configuré.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	queries := repo.New(pool)

	accessRepo := access.NewRepository(pool)
	accessService := access.NewService(accessRepo, queries)

	workflowRepo := workflow.NewRepository(pool)
	workflowService := workflow.NewService(workflowRepo, queries)
	workflowHandler := workflow.NewHandler(workflowService)

	categoryRepo := category.NewRepository(pool)
	categoryService := category.NewService(categoryRepo)

	userService := service.NewUserService(queries)

	var uploader storage.Uploader = storage.NoopUploader{}
	switch cfg.Storage.Provider {
	case "", "noop":
		// conserve l'uploader par défaut
	case "s3", "r2", "cloudflare-r2":
		s3Cfg := storage.S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			PublicDomain: cfg.Storage.S3PublicURL,
		}
		var err error
		uploader, err = storage.NewS3Uploader(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("storage: fournisseur %s non supporté", cfg.Storage.Provider)
	}

	accountService := service.NewAccountService(queries, uploader)

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		users:         userService,
		account:       accountService,
		access:        accessService,
		categories:    categoryService,
		storage:       uploader,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Register)
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Get("/nav", h.Nav)

		private.Route("/account", func(account chi.Router) {
			account.Put("/profile", h.UpdateProfile)
			account.Put("/password", h.ChangePassword)
			account.Post("/images", h.UpdateImages)
		})

		// Les règles d'autorisation des demandes sont appliquées dans le
		// service : propriétaire, rôle minimal par transition, garde de
		// suppression, portée des lectures par département.
		workflow.Mount(private, workflowHandler)

		private.Get("/categories", h.ListCategories)

		private.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.PageAccess(accessService, "/settings/categories"))
			admin.Post("/categories", h.CreateCategory)
			admin.Put("/categories/{categoryID}", h.UpdateCategory)
			admin.Post("/categories/{categoryID}/toggle", h.ToggleCategory)
			admin.Delete("/categories/{categoryID}", h.DeleteCategory)
		})

		private.Route("/admin/users", func(admin chi.Router) {
			admin.Use(httpmiddleware.PageAccess(accessService, "/settings/users"))
			admin.Get("/", h.ListUsers)
			admin.Post("/", h.UpsertUser)
			admin.Delete("/", h.DeleteUsers)
		})

		private.Route("/admin/pages", func(admin chi.Router) {
			admin.Use(httpmiddleware.PageAccess(accessService, "/settings/roles"))
			admin.Get("/", h.ListPageAccess)
			admin.Put("/{pageID}/access", h.UpdatePageAccess)
		})
	})

	// Avertit au démarrage si une entrée de navigation pointe vers une
	// page jamais enregistrée : une route sans page échappe au contrôle
	// d'accès et devient visible de tous.
	go func() {
		missing, err := accessService.VerifyNavRegistered(context.Background(), nav.Routes())
		if err != nil {
			log.Warn().Err(err).Msg("vérification de la navigation impossible")
			return
		}
		if len(missing) > 0 {
			log.Warn().Strs("routes", missing).Msg("routes de navigation non enregistrées")
		}
	}()

	return r, nil
}

// Health répond un statut simple.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready vérifie les dépendances critiques.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "base de données indisponible", nil)
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "redis indisponible", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
