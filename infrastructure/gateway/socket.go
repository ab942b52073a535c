package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"folio-chat/auth"
	"folio-chat/errors"
	"folio-chat/identity"
	"folio-chat/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const outgoingBuffer = 16

// openFeed upgrades to a websocket bound to one chat pane.
// Without ?token= the socket is read-only until a signIn frame arrives.
func (g *Gateway) openFeed(c *gin.Context) {
	token := c.Query("token")
	if token != "" {
		if _, err := g.tokens.Validate(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errors.Code(err)})
			return
		}
	}

	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered the client.
		g.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	s := &socket{
		log:     g.log.With("channel", c.Param("channel")),
		ws:      ws,
		session: identity.NewSession(g.log, auth.NewTokenAuthenticator(g.tokens, nil)),
		out:     make(chan any, outgoingBuffer),
		gateway: g,
	}
	s.serve(c.Param("channel"), token)
}

type socket struct {
	log     *slog.Logger
	ws      *websocket.Conn
	session *identity.Session
	pane    *services.ChatPane
	out     chan any
	gateway *Gateway

	mu    sync.Mutex
	token string
}

func (s *socket) serve(channel, token string) {
	defer s.ws.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if token != "" {
		s.setToken(token)
		if err := s.session.SignIn(auth.WithToken(ctx, token)); err != nil {
			s.writeNow(toReplyFrame("", err))
			return
		}
	}

	s.pane = s.gateway.chat.OpenPane(s.session)
	defer s.pane.Unmount()
	if err := s.pane.Mount(channel); err != nil {
		s.writeNow(toReplyFrame("", err))
		return
	}
	s.log.Debug("Feed socket opened", "signed_in", s.pane.Identity() != nil)
	s.enqueue(ctx, identityFrame{Type: frameIdentity, Identity: s.pane.Identity()})

	go func() {
		defer cancel()
		s.readLoop(ctx)
	}()
	s.writeLoop(ctx)
	s.log.Debug("Feed socket closed")
}

// writeLoop is the only writer of the connection.
func (s *socket) writeLoop(ctx context.Context) {
	settings := s.gateway.settings
	ping := time.NewTicker(settings.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(settings.WriteTimeout))
			return
		case update, ok := <-s.pane.Updates():
			if !ok {
				return
			}
			if err := s.write(toSnapshotFrame(update)); err != nil {
				return
			}
		case frame := <-s.out:
			if err := s.write(frame); err != nil {
				return
			}
		case <-ping.C:
			if err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(settings.WriteTimeout)); err != nil {
				s.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

func (s *socket) readLoop(ctx context.Context) {
	readTimeout := s.gateway.settings.ReadTimeout
	_ = s.ws.SetReadDeadline(time.Now().Add(readTimeout))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var frame clientFrame
		if err := s.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("Feed socket read failed", "error", err)
			}
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(readTimeout))
		s.enqueue(ctx, s.handle(ctx, frame))
	}
}

// handle runs one client frame and returns the reply to send.
func (s *socket) handle(ctx context.Context, frame clientFrame) any {
	switch frame.Type {
	case frameSend:
		err := s.pane.Send(auth.WithToken(ctx, s.currentToken()), frame.Text)
		if err != nil && !errors.Is(err, errors.ErrUnauthenticated) {
			s.log.Warn("Message refused", "error", err)
		}
		return toReplyFrame(frame.Ref, err)
	case frameSignIn:
		if err := s.pane.SignIn(auth.WithToken(ctx, frame.Token)); err != nil {
			return toReplyFrame(frame.Ref, err)
		}
		s.setToken(frame.Token)
		return identityFrame{Type: frameIdentity, Identity: s.pane.Identity()}
	case frameSignOut:
		_ = s.pane.SignOut(ctx)
		s.setToken("")
		return identityFrame{Type: frameIdentity}
	default:
		return replyFrame{Type: frameError, Ref: frame.Ref, Code: "unknown_frame"}
	}
}

func (s *socket) enqueue(ctx context.Context, frame any) {
	select {
	case <-ctx.Done():
	case s.out <- frame:
	}
}

func (s *socket) write(frame any) error {
	_ = s.ws.SetWriteDeadline(time.Now().Add(s.gateway.settings.WriteTimeout))
	if err := s.ws.WriteJSON(frame); err != nil {
		s.log.Debug("Feed socket write failed", "error", err)
		return err
	}
	return nil
}

// writeNow is used before the write loop starts.
func (s *socket) writeNow(frame any) {
	_ = s.write(frame)
}

func (s *socket) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *socket) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
