package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/finadvisor/platform/internal/common"
	"github.com/finadvisor/platform/internal/config"
	"github.com/finadvisor/platform/internal/httpapi/handlers"
	"github.com/finadvisor/platform/internal/httpapi/middleware"
	"github.com/finadvisor/platform/internal/store/rabbitmq"
	"github.com/finadvisor/platform/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, pub)

	r.GET("/ping", func(c *gin.Context) { common.OK(c, gin.H{"pong": true}) })

	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// Chat (JWT required)
	authGroup.POST("/chat/threads", h.CreateChatThread)
	authGroup.GET("/chat/threads/:thread_id/messages", h.ListChatMessages)
	authGroup.POST("/chat/inquiries", h.SubmitInquiry)
	authGroup.GET("/chat/inquiries/:inquiry_id", h.GetInquiry)

	// Provider administration
	authGroup.GET("/providers", h.ListProviders)
	authGroup.POST("/providers", h.CreateProvider)
	authGroup.PATCH("/providers/:id", h.UpdateProvider)

	return r
}
