package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "cowrite/internal/app"
	"cowrite/internal/bootstrap"
	"cowrite/internal/config"
	"cowrite/internal/platform/mysql"
	"cowrite/internal/platform/rabbitmq"
	"cowrite/internal/repository"
	"cowrite/internal/tools"
	"cowrite/internal/transport/http/handler"
	"cowrite/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if len(app.Config.App.AllowOrigins) > 0 {
		router.Use(middleware.CORS(app.Config.App.AllowOrigins))
	}

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app)...)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config
	userRepo := repository.NewUserRepository(app.MySQL)
	chatRepo := repository.NewChatRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	suggestionRepo := repository.NewSuggestionRepository(app.MySQL)
	pdfRepo := repository.NewPDFRepository(app.MySQL)
	voteRepo := repository.NewVoteRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		chatRepo,
		messageRepo,
		rabbitmq.NewMessagePublisher(app.MQConn, cfg.RabbitMQ.MessagePersistQueue),
		app.HistoryCache,
		app.Generator,
		tools.Deps{
			Documents:      documentRepo,
			Suggestions:    suggestionRepo,
			Registry:       app.Documents,
			Generator:      app.Generator,
			BlockModel:     cfg.ModelID(config.ModelBlock),
			WeatherBaseURL: cfg.Weather.BaseURL,
			HTTPClient:     &http.Client{Timeout: 10 * time.Second},
		},
		appsvc.ChatOptions{
			MaxSteps:     cfg.Chat.MaxSteps,
			TurnTimeout:  cfg.TurnTimeout(),
			SmoothDelay:  cfg.SmoothDelay(),
			AsyncPersist: cfg.Chat.AsyncPersist,
			ModelID:      cfg.ModelID,
		},
		app.Log,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, cfg.Chat.EventBufferSize, app.Log)
	pdfHandler := handler.NewPDFHandler(appsvc.NewPDFService(pdfRepo), app.Log)
	documentHandler := handler.NewDocumentHandler(
		appsvc.NewDocumentService(documentRepo),
		appsvc.NewSuggestionService(documentRepo, suggestionRepo, app.Log),
	)
	voteHandler := handler.NewVoteHandler(appsvc.NewVoteService(chatRepo, messageRepo, voteRepo))

	api := router.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	Register(protected, Handlers{
		Chat:     chatHandler,
		PDF:      pdfHandler,
		Document: documentHandler,
		Vote:     voteHandler,
	})

	return router
}

type Handlers struct {
	Chat     *handler.ChatHandler
	PDF      *handler.PDFHandler
	Document *handler.DocumentHandler
	Vote     *handler.VoteHandler
}

// Register mounts the authenticated API routes on group.
func Register(group *gin.RouterGroup, h Handlers) {
	group.POST("/chat", h.Chat.Stream)
	group.DELETE("/chat", h.Chat.Delete)
	group.GET("/chat/messages", h.Chat.GetMessages)
	group.PATCH("/chat/visibility", h.Chat.UpdateVisibility)
	group.GET("/history", h.Chat.ListChats)

	group.GET("/pdf", h.PDF.Get)
	group.POST("/pdf/save", h.PDF.Save)
	group.PUT("/pdf/save", h.PDF.Update)

	group.GET("/document", h.Document.Get)
	group.POST("/document", h.Document.Save)
	group.GET("/suggestions", h.Document.ListSuggestions)
	group.POST("/suggestions/:id/accept", h.Document.AcceptSuggestion)
	group.POST("/suggestions/:id/decline", h.Document.DeclineSuggestion)

	group.GET("/vote", h.Vote.List)
	group.PATCH("/vote", h.Vote.Vote)
}

func healthChecks(app *bootstrap.App) []handler.HealthCheck {
	return []handler.HealthCheck{
		{Name: "mysql", Check: func(ctx context.Context) error {
			return mysql.Ping(ctx, app.MySQL)
		}},
		{Name: "redis", Check: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}},
		{Name: "rabbitmq", Check: func(context.Context) error {
			if app.MQConn == nil || app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}},
		{Name: "persist_worker", Check: func(context.Context) error {
			if app.MessageWorker == nil || !app.MessageWorker.Running() {
				return errors.New("not consuming")
			}
			return nil
		}},
	}
}
