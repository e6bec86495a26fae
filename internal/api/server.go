package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"safeletstays/internal/cache"
	"safeletstays/internal/config"
	"safeletstays/internal/database"
	"safeletstays/internal/email"
	"safeletstays/internal/external"
	"safeletstays/internal/handlers"
	"safeletstays/internal/messaging"
	"safeletstays/internal/metrics"
	"safeletstays/internal/middleware"
	"safeletstays/internal/repository"
	"safeletstays/internal/search"
	"safeletstays/internal/service"
	"safeletstays/internal/token"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.Client
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis нужен лимитерам и auth кешу; без него сайт работает, но
	// защитные прослойки пропускают всех
	cacheClient, err := cache.NewClient(cfg.Cache)
	if err != nil {
		log.Printf("Redis unavailable, rate limiting disabled: %v", err)
		cacheClient = nil
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Elasticsearch опционален, поиск умеет работать по базе
	var searchClient *search.ElasticsearchClient
	if cfg.Search.Enabled {
		searchClient, err = search.NewElasticsearchClient(cfg.Search)
		if err != nil {
			log.Printf("Elasticsearch unavailable, falling back to database search: %v", err)
			searchClient = nil
		}
	}

	// Клиенты внешних сервисов
	paymentClient := external.NewPaymentClient(cfg.Payment)
	channelClient := external.NewChannelClient(cfg.Channel)
	emailClient := email.NewClient(cfg.Email)

	signer := token.NewSigner(cfg.TokenSecret, cfg.TokenMaxAge)

	repos := repository.NewRepositories(db)

	deps := service.Dependencies{
		Repos:         repos,
		Payment:       paymentClient,
		Channel:       channelClient,
		Email:         emailClient,
		NATS:          natsClient,
		Cache:         cacheClient,
		Signer:        signer,
		PublicBaseURL: cfg.PublicBaseURL,
		Currency:      cfg.Payment.Currency,
	}
	if searchClient != nil {
		deps.Search = searchClient
	}
	services := service.NewServices(deps)

	router := gin.New()

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		cache:    cacheClient,
		services: services,
		repos:    repos,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	s.router.Use(metrics.Middleware())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestFilter())
	s.router.Use(middleware.BruteForceProtection(s.counterStore(), []string{"/api/signup"}))
}

// counterStore прячет typed-nil кеш от middleware
func (s *Server) counterStore() middleware.CounterStore {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.repos.Users)

	api := s.router.Group("/api")
	{
		api.POST("/signup", h.Signup)

		// Каталог объектов открыт всем
		properties := api.Group("/properties")
		{
			properties.GET("", h.ListProperties)
			properties.GET("/:slug", h.GetProperty)
		}

		// Checkout доступен гостям, залогиненный пользователь привязывается
		api.POST("/checkout/:propertyID",
			middleware.RateLimit(s.counterStore(), "checkout", s.config.CheckoutRateLimit, s.config.CheckoutRateWindow),
			middleware.OptionalBasicAuth(s.repos.Users, s.cache),
			h.Checkout)

		// Возврат с платежной страницы и webhook шлюза
		payments := api.Group("/payments")
		{
			payments.GET("/success", h.PaymentSuccess)
			payments.GET("/cancel", h.PaymentCancel)
			payments.POST("/notifications", h.PaymentNotifications)
		}

		// Личный кабинет
		account := api.Group("")
		account.Use(middleware.BasicAuth(s.repos.Users, s.cache))
		account.Use(middleware.SessionBinding(s.counterStore(), s.config.StrictSessionBinding))
		{
			account.GET("/bookings", h.ListBookings)
			account.GET("/bookings/:id/receipt", h.DownloadReceipt)
			account.GET("/profile", h.GetProfile)
			account.PUT("/profile", h.UpdateProfile)
		}

		// Управление каталогом только для сотрудников
		staff := api.Group("/staff")
		staff.Use(middleware.BasicAuth(s.repos.Users, s.cache))
		staff.Use(middleware.RequireStaff(s.repos.Users))
		{
			staff.POST("/properties", h.CreateProperty)
			staff.PUT("/properties/:id", h.UpdateProperty)
			staff.DELETE("/properties/:id", h.DeleteProperty)
			staff.POST("/properties/reindex", h.ReindexProperties)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "safeletstays-api",
		"version": "1.0.0",
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
