package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/facturevox/facturevox/internal/chat"
	"github.com/facturevox/facturevox/internal/services"
)

type scriptedClient struct {
	mu    sync.Mutex
	reply chat.Reply
	calls int
}

func (s *scriptedClient) Send(context.Context, string) chat.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.reply
}

func (s *scriptedClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newChatHandler(t *testing.T, client chat.ModelClient) (*ChatHandler, *services.InvoiceStore) {
	t.Helper()
	store := services.NewInvoiceStore(setupDB(t))
	return &ChatHandler{
		Store:      store,
		Reconciler: services.NewReconciler(),
		newClient:  func() chat.ModelClient { return client },
		available:  true,
		sessions:   make(map[uint]*chat.Orchestrator),
	}, store
}

func TestChatMessageCreatesInvoice(t *testing.T) {
	client := &scriptedClient{reply: chat.Reply{ToolCalls: []chat.ToolCall{{
		Name: "create_invoice",
		Args: json.RawMessage(`{"clientName": "Jean Dupont", "lineItems": [{"description": "Plomberie", "quantity": 1, "price": 500}]}`),
	}}}}
	h, store := newChatHandler(t, client)

	rec := httptest.NewRecorder()
	h.Message(rec, authed(http.MethodPost, "/api/chat/message",
		`{"text": "Facture pour Jean Dupont, plomberie, 500$"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var snap chatSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Messages) != 2 {
		t.Fatalf("expected user/model pair, got %d messages", len(snap.Messages))
	}
	if snap.Messages[1].Text != "Parfait! J'ai créé votre facture." {
		t.Fatalf("unexpected confirmation: %q", snap.Messages[1].Text)
	}
	if !snap.InvoiceCreated || snap.State != "idle" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if client.callCount() != 1 {
		t.Fatalf("expected one model call, got %d", client.callCount())
	}

	invs, err := store.GetInvoices(context.Background(), 1)
	if err != nil || len(invs) != 1 {
		t.Fatalf("invoice not persisted: %v %+v", err, invs)
	}
	inv := invs[0]
	if inv.InvoiceNumber != "001" || inv.ClientInfo.Name != "Jean Dupont" {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
	if len(inv.LineItems) != 1 || inv.LineItems[0].Price != 500 {
		t.Fatalf("unexpected items: %+v", inv.LineItems)
	}
}

func TestChatMessageUnavailable(t *testing.T) {
	h, _ := newChatHandler(t, &scriptedClient{})
	h.available = false

	rec := httptest.NewRecorder()
	h.Message(rec, authed(http.MethodPost, "/api/chat/message", `{"text": "Allo"}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
	var out struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error != "ai_unavailable" || out.Details != "L'assistant IA n'est pas configuré." {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestChatMessagesSnapshot(t *testing.T) {
	client := &scriptedClient{reply: chat.Reply{Text: "Bonjour!"}}
	h, _ := newChatHandler(t, client)

	rec := httptest.NewRecorder()
	h.Message(rec, authed(http.MethodPost, "/api/chat/message", `{"text": "Allo"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("message: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Messages(rec, authed(http.MethodGet, "/api/chat/messages", ""))
	var snap chatSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Messages) != 2 || snap.Messages[0].Text != "Allo" || snap.Messages[1].Text != "Bonjour!" {
		t.Fatalf("unexpected log: %+v", snap.Messages)
	}
}

func TestChatSessionsPerUser(t *testing.T) {
	h, _ := newChatHandler(t, &scriptedClient{reply: chat.Reply{Text: "Ok"}})
	if h.orchestrator(1) == h.orchestrator(2) {
		t.Fatal("users share an orchestrator")
	}
	if h.orchestrator(1) != h.orchestrator(1) {
		t.Fatal("orchestrator not reused for the same user")
	}
}
