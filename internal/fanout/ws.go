package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"

	"github.com/Tanmoy095/loadboard/internal/models"
)

const (
	defaultMaxPayloadBytes = 16 << 10
	defaultFramesPerSecond = 20
	defaultFrameBurst      = 40
	maxDecodeErrors        = 3
	maxMessageRunes        = 2000
	writeTimeout           = 10 * time.Second
)

// Views supplies the complete current views clients can request.
type Views interface {
	MarketView(ctx context.Context) ([]map[string]any, error)
	ShipperShipments(ctx context.Context, shipperID string) ([]models.Shipment, error)
	ShipperBids(ctx context.Context, shipperID string) ([]models.ShipperBid, error)
}

type Server struct {
	hub             *Hub
	views           Views
	logger          *slog.Logger
	maxPayloadBytes int
	framesPerSecond rate.Limit
	frameBurst      int
}

type Option func(*Server)

// WithFrameLimits overrides the per-connection payload cap and frame rate.
func WithFrameLimits(maxPayloadBytes int, framesPerSecond float64, burst int) Option {
	return func(s *Server) {
		s.maxPayloadBytes = maxPayloadBytes
		s.framesPerSecond = rate.Limit(framesPerSecond)
		s.frameBurst = burst
	}
}

func NewServer(hub *Hub, views Views, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub:             hub,
		views:           views,
		logger:          logger,
		maxPayloadBytes: defaultMaxPayloadBytes,
		framesPerSecond: defaultFramesPerSecond,
		frameBurst:      defaultFrameBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler upgrades GET requests to websocket sessions.
func (s *Server) Handler() http.Handler {
	ws := websocket.Server{Handler: s.serveConn}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
}

type userPayload struct {
	UserID string `json:"user_id"`
}

type chatPayload struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (s *Server) serveConn(conn *websocket.Conn) {
	conn.MaxPayloadBytes = s.maxPayloadBytes
	session := s.hub.Register()
	log := s.logger.With("session", session.ID)
	log.Debug("websocket connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, session, log)
	}()
	defer func() {
		s.hub.Unregister(session)
		<-writerDone
		sessions, _ := s.hub.Counts("")
		log.Debug("websocket disconnected", "user_id", session.UserID(), "sessions", sessions)
	}()

	ctx := conn.Request().Context()
	limiter := rate.NewLimiter(s.framesPerSecond, s.frameBurst)
	decodeErrors := 0

	for {
		var frame Frame
		err := websocket.JSON.Receive(conn, &frame)
		if err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				s.replyError(session, "payload too large")
				continue
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				decodeErrors++
				s.replyError(session, "invalid frame")
				if decodeErrors >= maxDecodeErrors {
					return
				}
				continue
			}
			return
		}
		decodeErrors = 0

		if !limiter.Allow() {
			s.replyError(session, "rate limit exceeded")
			return
		}
		s.dispatch(ctx, session, frame)
	}
}

// writeLoop owns the connection's write side and closes the connection when
// the session ends, after flushing whatever is still queued.
func (s *Server) writeLoop(conn *websocket.Conn, session *Session, log *slog.Logger) {
	defer conn.Close()
	for {
		select {
		case <-session.Done():
			for {
				select {
				case msg := <-session.send:
					if err := write(conn, msg); err != nil {
						return
					}
				default:
					return
				}
			}
		case msg := <-session.send:
			if err := write(conn, msg); err != nil {
				log.Debug("websocket write failed", "error", err)
				s.hub.Unregister(session)
				return
			}
		}
	}
}

func write(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return websocket.Message.Send(conn, string(msg))
}

func (s *Server) dispatch(ctx context.Context, session *Session, frame Frame) {
	switch frame.Event {
	case EventJoinRoom:
		var p userPayload
		if !s.decode(session, frame, &p) || !s.requireUser(session, p.UserID) {
			return
		}
		userID := strings.TrimSpace(p.UserID)
		s.hub.Join(session, userID)
		sessions, inRoom := s.hub.Counts(userID)
		s.logger.Debug("session joined room", "session", session.ID, "user_id", userID, "sessions", sessions, "in_room", inRoom)

	case EventRequestMarketData:
		items, err := s.views.MarketView(ctx)
		if err != nil {
			s.logger.Error("market view failed", "error", err)
			s.replyError(session, "market data unavailable")
			return
		}
		s.reply(session, EventMarketDataUpdate, items)

	case EventRequestShipperShipments:
		var p userPayload
		if !s.decode(session, frame, &p) || !s.requireUser(session, p.UserID) {
			return
		}
		shipments, err := s.views.ShipperShipments(ctx, strings.TrimSpace(p.UserID))
		if err != nil {
			s.logger.Error("shipper shipments view failed", "shipper_id", p.UserID, "error", err)
			s.replyError(session, "shipments unavailable")
			return
		}
		s.reply(session, EventShipperShipmentsUpdate, shipments)

	case EventRequestShipperBids:
		var p userPayload
		if !s.decode(session, frame, &p) || !s.requireUser(session, p.UserID) {
			return
		}
		bids, err := s.views.ShipperBids(ctx, strings.TrimSpace(p.UserID))
		if err != nil {
			s.logger.Error("shipper bids view failed", "shipper_id", p.UserID, "error", err)
			s.replyError(session, "bids unavailable")
			return
		}
		s.reply(session, EventShipperBidsUpdate, bids)

	case EventSendMessage, EventTyping, EventStopTyping:
		s.relay(ctx, session, frame)

	default:
		s.replyError(session, "unsupported event")
	}
}

// relay forwards chat and typing indicators to the recipient's room.
func (s *Server) relay(ctx context.Context, session *Session, frame Frame) {
	from := session.UserID()
	if from == "" {
		s.replyError(session, "join_room first")
		return
	}
	var p chatPayload
	if !s.decode(session, frame, &p) {
		return
	}
	to := strings.TrimSpace(p.To)
	if to == "" {
		s.replyError(session, "to is required")
		return
	}

	out := map[string]any{"from": from, "to": to}
	event := frame.Event
	if frame.Event == EventSendMessage {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			s.replyError(session, "text is required")
			return
		}
		if utf8.RuneCountInString(text) > maxMessageRunes {
			s.replyError(session, "message too long")
			return
		}
		out["text"] = text
		out["sent_at"] = time.Now().UTC()
		event = EventNewMessage
	}
	if err := s.hub.SendToUser(ctx, to, event, out); err != nil {
		s.logger.Error("relay failed", "event", event, "error", err)
	}
}

func (s *Server) decode(session *Session, frame Frame, v any) bool {
	if len(frame.Data) == 0 {
		s.replyError(session, frame.Event+": data is required")
		return false
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		s.replyError(session, frame.Event+": invalid data")
		return false
	}
	return true
}

func (s *Server) requireUser(session *Session, userID string) bool {
	if strings.TrimSpace(userID) == "" {
		s.replyError(session, "user_id is required")
		return false
	}
	return true
}

func (s *Server) reply(session *Session, event string, payload any) {
	if err := s.hub.Reply(session, event, payload); err != nil {
		s.logger.Error("websocket reply failed", "event", event, "error", err)
	}
}

func (s *Server) replyError(session *Session, message string) {
	s.reply(session, EventError, errorPayload{Message: message})
}
