package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/store"
)

type chatRequest struct {
	UserInput  string `json:"user_input"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	CurrentURL string `json:"current_url"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	reply, err := s.chat.Chat(r.Context(), s.toChatRequest(r, in))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: reply.Answer, SessionID: in.SessionID})
}

type chatMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatMessagesResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []chatMessage `json:"messages"`
}

// handleChatMessages is the message-oriented variant of /chat: the
// exchange comes back as addressable message records for clients that
// track per-message state.
func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	reply, err := s.chat.Chat(r.Context(), s.toChatRequest(r, in))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatMessagesResponse{
		SessionID: in.SessionID,
		Messages: []chatMessage{
			{ID: uuid.NewString(), Role: string(contractx.RoleUser), Content: in.UserInput},
			{ID: uuid.NewString(), Role: string(contractx.RoleAssistant), Content: reply.Answer},
		},
	})
}

type enquiryReplyRequest struct {
	EnquiryID int64  `json:"enquiry_id"`
	Reply     string `json:"reply"`
}

type enquiryReplyResponse struct {
	EnquiryID       int64  `json:"enquiry_id"`
	Outcome         string `json:"outcome"`
	CustomerMessage string `json:"customer_message"`
}

func (s *Server) handleEnquiryReply(w http.ResponseWriter, r *http.Request) {
	var in enquiryReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if in.EnquiryID <= 0 {
		http.Error(w, "enquiry_id is required", http.StatusBadRequest)
		return
	}
	out, err := s.replies.HandleReply(r.Context(), in.EnquiryID, in.Reply)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enquiryReplyResponse{
		EnquiryID:       out.EnquiryID,
		Outcome:         string(out.Outcome),
		CustomerMessage: out.CustomerMessage,
	})
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var in chatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return chatRequest{}, false
	}
	if strings.TrimSpace(in.UserInput) == "" {
		http.Error(w, "user_input is required", http.StatusBadRequest)
		return chatRequest{}, false
	}
	if strings.TrimSpace(in.SessionID) == "" {
		in.SessionID = uuid.NewString()
	}
	return in, true
}

// toChatRequest maps the wire request onto the pipeline request,
// fetching page context best-effort when the client sent a URL.
func (s *Server) toChatRequest(r *http.Request, in chatRequest) contractx.ChatRequest {
	req := contractx.ChatRequest{
		Message:   in.UserInput,
		SessionID: in.SessionID,
		UserID:    in.UserID,
	}
	if in.CurrentURL != "" && s.pages != nil {
		page, err := s.pages.Fetch(r.Context(), in.CurrentURL)
		if err != nil {
			log.Debug().Err(err).Str("url", in.CurrentURL).Msg("page context unavailable")
		} else {
			req.PageContext = page
		}
	}
	return req
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case store.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, contractx.ErrInputRejected), errors.Is(err, contractx.ErrOutputUnsafe):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, contractx.ErrProviderFailure):
		http.Error(w, "service temporarily unavailable", http.StatusBadGateway)
	default:
		log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
