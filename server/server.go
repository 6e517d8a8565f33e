// Package server exposes the concierge over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/enquiry"
	"github.com/showeasy/concierge/pkg/webpage"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// ChatService handles one customer message end to end.
type ChatService interface {
	Chat(ctx context.Context, req contractx.ChatRequest) (contractx.ChatReply, error)
}

// ReplyService processes organizer replies to booking enquiries.
type ReplyService interface {
	HandleReply(ctx context.Context, enquiryID int64, reply string) (enquiry.Reply, error)
}

type Server struct {
	chat    ChatService
	replies ReplyService
	pages   *webpage.Fetcher
}

func New(chat ChatService, replies ReplyService, pages *webpage.Fetcher) *Server {
	return &Server{chat: chat, replies: replies, pages: pages}
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Post("/chat/messages", s.handleChatMessages)
	r.Post("/enquiry-reply", s.handleEnquiryReply)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
