// Package gateway serves the chat to browsers: REST for one-shot reads and writes,
// a websocket for the live feed.
package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"folio-chat/auth"
	"folio-chat/errors"
	"folio-chat/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Settings struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ReadTimeout must be longer than PingInterval, pongs keep the socket alive.
	ReadTimeout    time.Duration
	AllowedOrigins []string
}

type Gateway struct {
	log      *slog.Logger
	chat     services.IChatService
	tokens   *auth.Tokens
	settings Settings
	upgrader websocket.Upgrader
}

func NewGateway(log *slog.Logger, chat services.IChatService, tokens *auth.Tokens, settings Settings) *Gateway {
	g := &Gateway{log: log, chat: chat, tokens: tokens, settings: settings}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), g.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	channel := router.Group("/api/channels/:channel")
	channel.GET("/messages", g.listMessages)
	channel.POST("/messages", auth.RequireToken(g.tokens), g.postMessage)
	channel.GET("/feed", g.openFeed)
	return router
}

func (g *Gateway) listMessages(c *gin.Context) {
	messages, err := g.chat.GetMessages(c.Request.Context(), c.Param("channel"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": messages})
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (g *Gateway) postMessage(c *gin.Context) {
	var body postMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	id, err := g.chat.PostMessage(c.Request.Context(), c.Param("channel"), body.Text, auth.IdentityFromGin(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (g *Gateway) fail(c *gin.Context, err error) {
	status := errors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		g.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": errors.Code(err)})
}

// checkOrigin accepts any origin when none is configured.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.settings.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range g.settings.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (g *Gateway) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		g.log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
