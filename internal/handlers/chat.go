package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/facturevox/facturevox/auth"
	"github.com/facturevox/facturevox/httpx"
	"github.com/facturevox/facturevox/i18n"
	"github.com/facturevox/facturevox/internal/chat"
	"github.com/facturevox/facturevox/internal/services"
)

// ChatHandler owns the per-user conversational sessions. Each user gets
// one orchestrator with its own model session and capture adapter, created
// on first use and kept for the process lifetime.
type ChatHandler struct {
	Store      *services.InvoiceStore
	Reconciler *services.Reconciler
	newClient  func() chat.ModelClient
	available  bool

	mu       sync.Mutex
	sessions map[uint]*chat.Orchestrator
}

func NewChatHandler(store *services.InvoiceStore, apiKey, model string) *ChatHandler {
	return &ChatHandler{
		Store:      store,
		Reconciler: services.NewReconciler(),
		newClient:  func() chat.ModelClient { return chat.NewSession(apiKey, model) },
		available:  apiKey != "",
		sessions:   make(map[uint]*chat.Orchestrator),
	}
}

func (h *ChatHandler) orchestrator(uid uint) *chat.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	if o, ok := h.sessions[uid]; ok {
		return o
	}
	o := chat.NewOrchestrator(h.newClient(), func(ctx context.Context, args json.RawMessage) error {
		number, err := h.Store.NextInvoiceNumber(ctx, uid)
		if err != nil {
			return err
		}
		inv := h.Reconciler.Reconcile(args, number)
		return h.Store.SaveInvoice(ctx, uid, inv)
	})
	h.sessions[uid] = o
	return o
}

type chatSnapshot struct {
	State          string         `json:"state"`
	Recording      bool           `json:"recording"`
	Waveform       bool           `json:"waveform"`
	Transcript     string         `json:"transcript"`
	Messages       []chat.Message `json:"messages"`
	InvoiceCreated bool           `json:"invoiceCreated"`
}

func (h *ChatHandler) snapshot(o *chat.Orchestrator) chatSnapshot {
	c := o.Capture()
	msgs := o.Messages()
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return chatSnapshot{
		State:          o.State().String(),
		Recording:      c.IsRecording(),
		Waveform:       c.ShowWaveform(),
		Transcript:     c.Transcript(),
		Messages:       msgs,
		InvoiceCreated: o.InvoiceCreated(),
	}
}

// Message: POST /api/chat/message {"text": ...}. Typed input takes the
// same path as a voice utterance; the response carries the full snapshot
// including the model's answer.
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	if !h.available {
		httpx.JSONError(w, http.StatusServiceUnavailable, "ai_unavailable", i18n.T(lang, "ai_unavailable"))
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := httpx.Decode(r, &body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	o := h.orchestrator(uid)
	o.Submit(r.Context(), body.Text)
	httpx.JSON(w, http.StatusOK, h.snapshot(o))
}

// Messages: GET /api/chat/messages returns the conversation snapshot.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, h.snapshot(h.orchestrator(uid)))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the session cookie is the actual access control
	CheckOrigin: func(*http.Request) bool { return true },
}

type voiceEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Voice: GET /api/chat/voice upgrades to a WebSocket carrying transcript
// events from the browser's speech recognition. Inbound event types:
// "start", "transcript" (with text), "stop", "end" (engine gave up).
// The server pushes a snapshot after every event and after every
// completed turn, including turns finished by the silence timer.
func (h *ChatHandler) Voice(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	o := h.orchestrator(uid)
	capture := o.Capture()
	capture.SetAvailable(true)
	defer func() {
		// a dropped connection ends the utterance the way the engine
		// giving up would: pending speech still gets submitted
		capture.RecognitionEnded()
		capture.SetAvailable(false)
		o.SetOnTurn(nil)
	}()

	// single writer goroutine; notifications collapse into one pending push
	notify := make(chan struct{}, 1)
	ping := func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	o.SetOnTurn(ping)

	done := make(chan struct{})
	defer close(done)
	var writeMu sync.Mutex
	writeJSON := func(v any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("voice ws write: %v", err)
		}
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-notify:
				writeJSON(map[string]any{"type": "state", "data": h.snapshot(o)})
			}
		}
	}()

	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	for {
		var ev voiceEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("voice ws read: %v", err)
			}
			return
		}
		switch ev.Type {
		case "start":
			if err := o.MicPressed(r.Context()); errors.Is(err, chat.ErrCapabilityUnavailable) {
				writeJSON(map[string]any{"type": "error", "message": i18n.T(lang, "voice_unavailable")})
				continue
			}
		case "transcript":
			capture.Update(ev.Text)
		case "stop":
			capture.Stop()
		case "end":
			capture.RecognitionEnded()
		default:
			writeJSON(map[string]any{"type": "error", "message": "unknown event"})
			continue
		}
		ping()
	}
}
