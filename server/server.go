package server

import (
	"fmt"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"rank-annotation-backend/server/common"
	"rank-annotation-backend/server/handler"
)

type Config struct {
	Host      string
	Port      int
	DebugMode bool
	// 管理接口的密钥，调试模式下为空时不校验
	AdminKey string
}

type Server struct {
	engine *gin.Engine
	config *Config
}

func New(config *Config) *Server {
	if !config.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	eng := gin.New()

	eng.Use(gin.Recovery())
	eng.Use(common.LogRequest)
	eng.Use(cors.Default())

	eng.GET("/health", handler.Health)
	eng.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessionGroup := eng.Group("session")
	{
		sessionGroup.POST("", handler.CreateSession)
		sessionGroup.GET("/:id", handler.GetSession)
		sessionGroup.POST("/:id/reload", handler.ReloadSession)
		sessionGroup.POST("/:id/reorder", handler.Reorder)
		sessionGroup.POST("/:id/comment", handler.SetComment)
		sessionGroup.GET("/:id/can-submit", handler.CanSubmit)
		sessionGroup.POST("/:id/submit", handler.Submit)
	}

	eng.POST("/sheet/update", handler.UpdateSheet)

	// 需要管理密钥的路由
	adminGroup := eng.Group("admin")
	{
		adminGroup.Use(common.RejectNotAdmin(config.AdminKey, config.DebugMode))

		adminGroup.GET("/progress", handler.GetProgress)
		adminGroup.POST("/upload", handler.UploadSheet)
		adminGroup.POST("/snapshot", handler.Snapshot)
	}

	return &Server{
		engine: eng,
		config: config,
	}
}

func (s *Server) Handler() *gin.Engine {
	return s.engine
}

func (s *Server) RunServer() error {
	return s.engine.Run(fmt.Sprintf("%s:%d", s.config.Host, s.config.Port))
}
