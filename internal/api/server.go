package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/tickethub/helpdesk-api/docs"
	v1 "github.com/tickethub/helpdesk-api/internal/api/handler/v1"
	"github.com/tickethub/helpdesk-api/internal/api/middleware"
	"github.com/tickethub/helpdesk-api/internal/chat"
	"github.com/tickethub/helpdesk-api/internal/config"
	"github.com/tickethub/helpdesk-api/internal/repository"
	"github.com/tickethub/helpdesk-api/internal/repository/dao"
	"github.com/tickethub/helpdesk-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Hub    *chat.Hub
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	messageSvc := initMessageService(db)
	userSvc := initUserService(db)

	s.Hub = chat.NewHub(messageSvc)
	go s.Hub.Run()

	authHandler := s.initAuthHandler(db)
	userHandler := v1.NewUserHandler(userSvc)
	ticketHandler := s.initTicketHandler(db, userSvc)
	messageHandler := v1.NewMessageHandler(messageSvc, s.Hub, userSvc)
	chatHandler := v1.NewChatHandler(s.Hub, conf.Chat, userSvc)

	s.MountHandlers(userSvc, authHandler, userHandler, ticketHandler, messageHandler, chatHandler)

	return s
}

func initMessageService(db *gorm.DB) *service.MessageService {
	repo := repository.NewMessageRepository(dao.NewMessageDAO(db))
	ticketRepo := repository.NewTicketRepository(dao.NewTicketDAO(db))
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))

	return service.NewMessageService(repo, ticketRepo, userRepo)
}

func initUserService(db *gorm.DB) *service.UserService {
	repo := repository.NewUserRepository(dao.NewUserDAO(db))

	return service.NewUserService(repo)
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initTicketHandler(db *gorm.DB, userSvc *service.UserService) *v1.TicketHandler {
	ticketDAO := dao.NewTicketDAO(db)
	repo := repository.NewTicketRepository(ticketDAO)
	svc := service.NewTicketService(repo)
	handler := v1.NewTicketHandler(svc, userSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	userSvc middleware.UserGetter,
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	ticketHandler *v1.TicketHandler,
	messageHandler *v1.MessageHandler,
	chatHandler *v1.ChatHandler,
) {
	const basePath = "/api/v1"

	verifyJWT := middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT()

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	authed := s.Router.Group(basePath, verifyJWT)
	{
		authed.GET("/users/:userID", userHandler.HandleGetUser)

		authed.GET("/tickets", ticketHandler.HandleListTickets)
		authed.POST("/tickets", ticketHandler.HandleCreateTicket)
		authed.GET("/tickets/:ticketID", ticketHandler.HandleGetTicket)
		authed.POST("/tickets/:ticketID/close", ticketHandler.HandleCloseTicket)
	}

	// Role-prefixed message endpoints. Both prefixes serve the same
	// handlers; authorization is enforced per ticket in the service
	// layer, and the /admin prefix additionally requires an admin user.
	users := s.Router.Group(basePath+"/user", verifyJWT)
	{
		mountMessageRoutes(users, messageHandler)
	}

	admins := s.Router.Group(basePath+"/admin", verifyJWT, middleware.RequireAdmin(userSvc))
	{
		mountMessageRoutes(admins, messageHandler)
		admins.POST("/tickets/:ticketID/respond", ticketHandler.HandleRespondTicket)
	}

	s.Router.GET("/ws/chat", verifyJWT, chatHandler.HandleWebSocket)

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Helpdesk API"
	docs.SwaggerInfo.Description = "Support ticket API with real-time ticket chat."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

func mountMessageRoutes(g *gin.RouterGroup, h *v1.MessageHandler) {
	g.GET("/GetTicketMessages/:ticketID", h.HandleGetTicketMessages)
	g.POST("/SendMessage", h.HandleSendMessage)
	g.GET("/GetNewMessages", h.HandleGetNewMessages)
	g.GET("/GetUnreadMessageCount/:ticketID", h.HandleGetUnreadMessageCount)
	g.DELETE("/DeleteMessage/:messageID", h.HandleDeleteMessage)
}
