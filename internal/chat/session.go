package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/facturevox/facturevox/i18n"
)

// ToolCall is a structured invoice-creation request emitted by the model.
type ToolCall struct {
	Name string
	Args json.RawMessage
}

// Reply is a single model turn: free text, tool calls, or both.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// ModelClient is what the orchestrator talks to. Send never fails at the
// API level: transport errors collapse into an apology reply so the
// conversation keeps going.
type ModelClient interface {
	Send(ctx context.Context, utterance string) Reply
}

type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Session is a persistent conversation with the model. History lives for
// the lifetime of the session and is initialized lazily on the first turn
// so the system prompt carries the date of first use, not server start.
type Session struct {
	api   completionAPI
	model string
	now   func() time.Time

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

func NewSession(apiKey, model string) *Session {
	s := &Session{model: model, now: time.Now}
	if apiKey != "" {
		s.api = openai.NewClient(apiKey)
	}
	return s
}

// Available reports whether a model credential is configured. Callers must
// check before routing utterances; an unavailable session has no fallback.
func (s *Session) Available() bool { return s.api != nil }

// Send runs one conversational turn. Turns are serialized so history stays
// a consistent alternation of user and assistant messages.
func (s *Session) Send(ctx context.Context, utterance string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return Reply{Text: i18n.T(i18n.DefaultLang, "ai_unavailable")}
	}
	if s.history == nil {
		s.history = []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt(s.now()),
		}}
	}
	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})

	resp, err := s.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: s.history,
		Tools:    []openai.Tool{createInvoiceTool},
	})
	if err != nil {
		log.Printf("chat completion failed: %v", err)
		return Reply{Text: i18n.T(i18n.DefaultLang, "chat_error")}
	}
	if len(resp.Choices) == 0 {
		log.Printf("chat completion returned no choices")
		return Reply{Text: i18n.T(i18n.DefaultLang, "chat_error")}
	}

	msg := resp.Choices[0].Message
	s.history = append(s.history, msg)

	reply := Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			Name: tc.Function.Name,
			Args: json.RawMessage(tc.Function.Arguments),
		})
		// the API requires a tool result for every tool call before the
		// next user turn
		s.history = append(s.history, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: tc.ID,
			Content:    `{"status":"ok"}`,
		})
	}
	return reply
}

var frenchWeekdays = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

// systemPrompt anchors the model in the current date and the tax rules so
// it never asks the user for either.
func systemPrompt(now time.Time) string {
	monday := now.AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
	friday := monday.AddDate(0, 0, 4)
	return fmt.Sprintf(`Tu es un assistant vocal de facturation pour des entrepreneurs du Québec.

Nous sommes le %s %s. La semaine de travail courante va du lundi %s au vendredi %s. Utilise ces dates pour interpréter les expressions comme "cette semaine" ou "vendredi prochain".

Quand l'utilisateur décrit un travail à facturer, appelle l'outil create_invoice avec les détails fournis. N'invente jamais de détails manquants.

Les taxes TPS (5%%) et TVQ (9.975%%) sont calculées automatiquement par l'application. Ne dis jamais qu'il manque les taxes et ne les ajoute pas aux prix.

Réponds toujours en français, brièvement, sur un ton professionnel et chaleureux.`,
		frenchWeekdays[int(now.Weekday())],
		now.Format("2006-01-02"),
		monday.Format("2006-01-02"),
		friday.Format("2006-01-02"))
}

var createInvoiceTool = openai.Tool{
	Type: openai.ToolTypeFunction,
	Function: &openai.FunctionDefinition{
		Name:        "create_invoice",
		Description: "Crée une nouvelle facture avec les informations du client et les articles facturés.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"clientName": {
					Type:        jsonschema.String,
					Description: "Nom du client ou de son entreprise",
				},
				"clientAddress": {
					Type:        jsonschema.String,
					Description: "Adresse du client, si mentionnée",
				},
				"clientEmail": {
					Type:        jsonschema.String,
					Description: "Courriel du client, si mentionné",
				},
				"dueDate": {
					Type:        jsonschema.String,
					Description: "Date d'échéance au format AAAA-MM-JJ, si mentionnée",
				},
				"lineItems": {
					Type:        jsonschema.Array,
					Description: "Articles ou services facturés",
					Items: &jsonschema.Definition{
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"description": {Type: jsonschema.String},
							"quantity":    {Type: jsonschema.Number},
							"price":       {Type: jsonschema.Number, Description: "Prix unitaire avant taxes"},
						},
						Required: []string{"description", "quantity", "price"},
					},
				},
			},
			Required: []string{"clientName", "lineItems"},
		},
	},
}
