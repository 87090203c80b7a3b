package chat

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Drafter produces a short French email body accompanying an invoice.
// It is stateless: each draft is an independent one-shot completion.
type Drafter struct {
	api   completionAPI
	model string
}

func NewDrafter(apiKey, model string) *Drafter {
	d := &Drafter{model: model}
	if apiKey != "" {
		d.api = openai.NewClient(apiKey)
	}
	return d
}

// EmailBody drafts a polite cover message for the given invoice. Callers
// fall back to a static template when no credential is configured or the
// call fails.
func (d *Drafter) EmailBody(ctx context.Context, clientName, invoiceNumber, companyName string, total float64) (string, error) {
	if d.api == nil {
		return "", fmt.Errorf("no model credential configured")
	}
	prompt := fmt.Sprintf(
		"Rédige un court courriel en français (3 ou 4 phrases, sans objet) pour envoyer la facture %s de %.2f$ au client %s de la part de %s. Ton poli et professionnel. Termine par une formule de salutation.",
		invoiceNumber, total, clientName, companyName)
	resp, err := d.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
