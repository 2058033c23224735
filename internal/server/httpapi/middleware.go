package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/chantube/internal/common"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/auth"
	"github.com/dmitrijs2005/chantube/internal/server/metrics"
	"github.com/dmitrijs2005/chantube/internal/server/models"
	"github.com/gin-gonic/gin"
)

const accountKey = "account"

// RequestLogger writes one line per request through log.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				log.Error(c.Request.Context(), "panic recovered", "panic", p, "path", c.Request.URL.Path)
				fail(c, log, common.Internal("internal server error", nil))
			}
		}()
		c.Next()
	}
}

// Metrics records request counts and latency per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// accessToken reads the token from the cookie or the Authorization header.
func accessToken(c *gin.Context) string {
	if v, err := c.Cookie(common.AccessTokenCookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader(common.AuthorizationHeaderName)
	if strings.HasPrefix(h, common.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	}
	return ""
}

// RequireAccess admits requests carrying a valid access token for an
// existing account and stores that account in the context.
func RequireAccess(secret []byte, accounts AccountAPI, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			fail(c, log, common.Unauthorized("unauthorized request"))
			return
		}

		payload, err := auth.ParseAccessToken(token, secret)
		if err != nil {
			fail(c, log, common.Unauthorized("invalid access token").WithCause(err))
			return
		}

		acc, err := accounts.Current(c.Request.Context(), payload.AccountID)
		if errors.Is(err, common.ErrorNotFound) {
			fail(c, log, common.Unauthorized("invalid access token").WithCause(err))
			return
		}
		if err != nil {
			fail(c, log, err)
			return
		}

		c.Set(accountKey, acc)
		c.Next()
	}
}

func currentAccount(c *gin.Context) *models.Account {
	return c.MustGet(accountKey).(*models.Account)
}
