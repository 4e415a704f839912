package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	leadstransport "sasquatch_backend/internal/leads/transport"
	"sasquatch_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type fakeStore struct {
	seen map[string]bool
}

func (f *fakeStore) MarkSeen(_ context.Context, id, _ string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

type fakeConversations struct {
	inbound [][2]string
}

func (f *fakeConversations) Inbound(_ context.Context, phone, body string) error {
	f.inbound = append(f.inbound, [2]string{phone, body})
	return nil
}

type fakeMissedCalls struct {
	payloads []leadstransport.MissedCallWebhook
	created  bool
}

func (f *fakeMissedCalls) IngestMissedCall(_ context.Context, payload leadstransport.MissedCallWebhook) (leadstransport.CreateLeadResponse, bool, error) {
	f.payloads = append(f.payloads, payload)
	return leadstransport.CreateLeadResponse{}, f.created, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/webhooks"))
	return r
}

func postSMS(r *gin.Engine, from, body, sid string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("From", from)
	form.Set("Body", body)
	form.Set("MessageSid", sid)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInboundSMSAcksWithEmptyTwiML(t *testing.T) {
	conversations := &fakeConversations{}
	h := New(&fakeStore{}, conversations, &fakeMissedCalls{}, logger.New("development"))
	r := newTestRouter(h)

	w := postSMS(r, "+17195551234", "hello", "SM123")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("content type = %q, want text/xml", ct)
	}
	if !strings.Contains(w.Body.String(), "<Response></Response>") {
		t.Fatalf("body = %q, want empty TwiML envelope", w.Body.String())
	}
	if len(conversations.inbound) != 1 {
		t.Fatalf("expected one inbound call, got %d", len(conversations.inbound))
	}
}

func TestInboundSMSDropsDuplicateDeliveries(t *testing.T) {
	conversations := &fakeConversations{}
	h := New(&fakeStore{}, conversations, &fakeMissedCalls{}, logger.New("development"))
	r := newTestRouter(h)

	postSMS(r, "+17195551234", "hello", "SM123")
	w := postSMS(r, "+17195551234", "hello", "SM123")

	if w.Code != http.StatusOK {
		t.Fatalf("duplicates are still acked with 200, got %d", w.Code)
	}
	if len(conversations.inbound) != 1 {
		t.Fatalf("duplicate delivery must not reach the engine, got %d calls", len(conversations.inbound))
	}
}

func TestInboundSMSDropsEmptySender(t *testing.T) {
	conversations := &fakeConversations{}
	h := New(&fakeStore{}, conversations, &fakeMissedCalls{}, logger.New("development"))
	r := newTestRouter(h)

	w := postSMS(r, "", "hello", "SM124")

	if w.Code != http.StatusOK {
		t.Fatalf("drops are still acked with 200, got %d", w.Code)
	}
	if len(conversations.inbound) != 0 {
		t.Fatal("message without a sender must be dropped")
	}
}

func TestMissedCallAcksAndDeduplicates(t *testing.T) {
	missed := &fakeMissedCalls{created: true}
	h := New(&fakeStore{}, &fakeConversations{}, missed, logger.New("development"))
	r := newTestRouter(h)

	payload := `{"callId":"CALL1","event":{"type":"call.terminated","call":{"direction":"inbound","from":{"phoneNumber":"+17195551234"}}}}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/missed-call", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if strings.TrimSpace(w.Body.String()) != "{}" {
			t.Fatalf("body = %q, want {}", w.Body.String())
		}
	}

	if len(missed.payloads) != 1 {
		t.Fatalf("replayed call event must be ingested once, got %d", len(missed.payloads))
	}
}
