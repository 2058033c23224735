package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if origin == "" || origin == "*" {
		// reflect the caller's origin; a literal "*" is rejected by
		// browsers on credentialed requests
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		for _, o := range strings.Split(origin, ",") {
			cfg.AllowOrigins = append(cfg.AllowOrigins, strings.TrimSpace(o))
		}
	}
	return cfg
}

// NewRouter wires middleware and routes onto a fresh gin engine.
func NewRouter(h *Handler, log logging.Logger) *gin.Engine {
	r := gin.New()

	r.Use(Recovery(log))
	r.Use(RequestLogger(log))
	r.Use(cors.New(corsConfig(h.config.CORSOrigin)))
	r.Use(Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := r.Group("/api/v1/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.POST("/refresh-token", h.Refresh)
	}

	secured := users.Group("")
	secured.Use(RequireAccess([]byte(h.config.AccessTokenSecret), h.accounts, log))
	{
		secured.POST("/logout", h.Logout)
		secured.POST("/change-password", h.ChangePassword)
		secured.GET("/current-user", h.CurrentUser)
		secured.PATCH("/update-account", h.UpdateAccount)
		secured.PATCH("/avatar", h.UpdateAvatar)
		secured.PATCH("/cover-image", h.UpdateCoverImage)
		secured.GET("/c/:username", h.ChannelProfile)
		secured.POST("/c/:username/subscribe", h.Subscribe)
		secured.DELETE("/c/:username/subscribe", h.Unsubscribe)
	}

	return r
}
