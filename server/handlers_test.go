package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/enquiry"
	"github.com/showeasy/concierge/store"
)

type fakeChatService struct {
	reply contractx.ChatReply
	err   error
	got   contractx.ChatRequest
}

func (f *fakeChatService) Chat(_ context.Context, req contractx.ChatRequest) (contractx.ChatReply, error) {
	f.got = req
	if f.err != nil {
		return contractx.ChatReply{}, f.err
	}
	return f.reply, nil
}

type fakeReplyService struct {
	out enquiry.Reply
	err error
}

func (f *fakeReplyService) HandleReply(_ context.Context, enquiryID int64, _ string) (enquiry.Reply, error) {
	if f.err != nil {
		return enquiry.Reply{}, f.err
	}
	out := f.out
	out.EnquiryID = enquiryID
	return out, nil
}

func newTestServer(chat *fakeChatService, replies *fakeReplyService) http.Handler {
	return New(chat, replies, nil).Router()
}

func TestHealth(t *testing.T) {
	t.Parallel()

	handler := newTestServer(&fakeChatService{}, &fakeReplyService{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestChat(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{reply: contractx.ChatReply{Answer: "Hello there!"}}
	handler := newTestServer(chat, &fakeReplyService{})

	body := `{"user_input":"hi","session_id":"s1","user_id":"u1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Hello there!" || resp.SessionID != "s1" {
		t.Fatalf("response = %#v", resp)
	}
	if chat.got.Message != "hi" || chat.got.UserID != "u1" {
		t.Fatalf("service got %#v", chat.got)
	}
}

func TestChatGeneratesSessionID(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{reply: contractx.ChatReply{Answer: "hi"}}
	handler := newTestServer(chat, &fakeReplyService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_input":"hi"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("session_id should be generated when absent")
	}
	if chat.got.SessionID != resp.SessionID {
		t.Fatal("generated session_id must reach the service")
	}
}

func TestChatRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	handler := newTestServer(&fakeChatService{}, &fakeReplyService{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"session_id":"s1"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChatMessagesReturnsRecords(t *testing.T) {
	t.Parallel()

	chat := &fakeChatService{reply: contractx.ChatReply{Answer: "answer text"}}
	handler := newTestServer(chat, &fakeReplyService{})

	body := `{"user_input":"question","session_id":"s1"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/messages", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp chatMessagesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(resp.Messages))
	}
	if resp.Messages[0].Role != "user" || resp.Messages[0].Content != "question" {
		t.Fatalf("first message = %#v", resp.Messages[0])
	}
	if resp.Messages[1].Role != "assistant" || resp.Messages[1].Content != "answer text" {
		t.Fatalf("second message = %#v", resp.Messages[1])
	}
	if resp.Messages[0].ID == "" || resp.Messages[0].ID == resp.Messages[1].ID {
		t.Fatal("messages need distinct non-empty IDs")
	}
}

func TestEnquiryReply(t *testing.T) {
	t.Parallel()

	replies := &fakeReplyService{out: enquiry.Reply{
		Outcome:         enquiry.OutcomeAnswered,
		CustomerMessage: "Yes, wheelchair seats are available.",
	}}
	handler := newTestServer(&fakeChatService{}, replies)

	body := `{"enquiry_id":42,"reply":"yes we have accessible seating"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/enquiry-reply", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp enquiryReplyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EnquiryID != 42 || resp.Outcome != "answered" {
		t.Fatalf("response = %#v", resp)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: bad input", contractx.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("enquiry 9: %w", store.ErrNotFound), http.StatusNotFound},
		{"provider", fmt.Errorf("%w: rate limited", contractx.ErrProviderFailure), http.StatusBadGateway},
		{"rejected", fmt.Errorf("%w: blocked", contractx.ErrInputRejected), http.StatusUnprocessableEntity},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			handler := newTestServer(&fakeChatService{err: tc.err}, &fakeReplyService{})
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat",
				strings.NewReader(`{"user_input":"hi","session_id":"s1"}`)))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
