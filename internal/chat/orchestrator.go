package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/facturevox/facturevox/i18n"
)

// State is the orchestrator's explicit phase. Transitions:
// Idle -> Recording (speech start), Recording -> Idle (capture end),
// Idle -> Thinking (submission), Thinking -> Idle (model reply appended).
type State int

const (
	StateIdle State = iota
	StateRecording
	StateThinking
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateThinking:
		return "thinking"
	default:
		return "idle"
	}
}

// Message roles in the conversation log.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one entry of the append-only conversation log.
type Message struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Text string `json:"text"`
}

// CreateFunc materializes an invoice from raw create_invoice arguments.
// The orchestrator does not interpret the arguments itself.
type CreateFunc func(ctx context.Context, args json.RawMessage) error

// Orchestrator drives one user's conversational session: it owns the
// capture adapter, the conversation log, and the dispatch of utterances
// to the model. Every submitted utterance appends exactly two messages,
// one user and one model, in that order.
type Orchestrator struct {
	client   ModelClient
	onCreate CreateFunc
	capture  *Capture
	newID    func() string

	mu       sync.Mutex
	state    State
	messages []Message
	created  bool // last completed turn produced an invoice
	onTurn   func()
}

func NewOrchestrator(client ModelClient, onCreate CreateFunc) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		onCreate: onCreate,
		newID:    uuid.NewString,
	}
	o.capture = NewCapture(o.captureEnded)
	return o
}

// Capture exposes the speech capture adapter for the voice bridge.
func (o *Orchestrator) Capture() *Capture { return o.capture }

// SetOnTurn registers a callback fired after any state change driven by
// capture or a completed turn. The voice bridge uses it to push updates;
// pass nil to detach.
func (o *Orchestrator) SetOnTurn(fn func()) {
	o.mu.Lock()
	o.onTurn = fn
	o.mu.Unlock()
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.onTurn
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// MicPressed implements click-to-talk: starts capture when idle, stops it
// when recording. Stopping triggers submission of whatever was captured.
func (o *Orchestrator) MicPressed(ctx context.Context) error {
	if o.capture.IsRecording() {
		o.capture.Stop()
		return nil
	}
	if err := o.capture.Start(); err != nil {
		return err
	}
	o.mu.Lock()
	o.state = StateRecording
	o.mu.Unlock()
	return nil
}

// captureEnded runs whenever capture stops, whatever the reason. A blank
// transcript is discarded without touching the conversation.
func (o *Orchestrator) captureEnded(transcript string, _ EndReason) {
	o.mu.Lock()
	if o.state == StateRecording {
		o.state = StateIdle
	}
	o.mu.Unlock()
	o.Submit(context.Background(), transcript)
	o.notify()
}

// Submit runs one conversational turn with the given utterance. Blank
// utterances are ignored. The model call happens outside the lock; on
// return the model message is appended and the state is back to idle.
func (o *Orchestrator) Submit(ctx context.Context, utterance string) {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return
	}

	o.mu.Lock()
	o.state = StateThinking
	o.created = false
	o.messages = append(o.messages, Message{ID: o.newID(), Role: RoleUser, Text: text})
	o.mu.Unlock()

	reply := o.client.Send(ctx, text)
	answer := reply.Text
	created := false
	if len(reply.ToolCalls) > 0 {
		// only the first call counts; the model is instructed to emit one
		tc := reply.ToolCalls[0]
		if tc.Name == "create_invoice" {
			if err := o.onCreate(ctx, tc.Args); err != nil {
				answer = i18n.T(i18n.DefaultLang, "invoice_create_failed")
			} else {
				answer = i18n.T(i18n.DefaultLang, "invoice_created")
				created = true
			}
		}
	}
	if answer == "" {
		answer = i18n.T(i18n.DefaultLang, "chat_error")
	}

	o.mu.Lock()
	o.messages = append(o.messages, Message{ID: o.newID(), Role: RoleModel, Text: answer})
	o.created = created
	o.state = StateIdle
	o.mu.Unlock()
	o.notify()
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Messages returns a copy of the conversation log in append order.
func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// InvoiceCreated reports whether the last completed turn created an
// invoice. The flag drives the confirmation overlay and resets on the
// next submission.
func (o *Orchestrator) InvoiceCreated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.created
}
