package email

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/facturevox/facturevox/internal/models"
	"github.com/facturevox/facturevox/internal/services"
)

// Payload is everything the client needs to open the user's mail program
// with a prefilled message. The server never sends mail itself.
type Payload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Mailto  string `json:"mailto"`
}

// Build assembles the mail payload for an invoice. body may come from the
// drafter; pass "" to use the static fallback.
func Build(inv models.Invoice, company *models.CompanyInfo, body string) Payload {
	companyName := ""
	if company != nil {
		companyName = company.Name
	}
	subject := fmt.Sprintf("Facture %s", inv.InvoiceNumber)
	if companyName != "" {
		subject = fmt.Sprintf("Facture %s - %s", inv.InvoiceNumber, companyName)
	}
	if body == "" {
		body = FallbackBody(inv, companyName)
	}

	to := inv.ClientInfo.Email
	if to == "N/A" {
		to = ""
	}
	return Payload{
		To:      to,
		Subject: subject,
		Body:    body,
		Mailto:  fmt.Sprintf("mailto:%s?subject=%s&body=%s", to, escape(subject), escape(body)),
	}
}

// FallbackBody is the static French cover message used when no drafted
// body is available.
func FallbackBody(inv models.Invoice, companyName string) string {
	total := services.NewTaxService().ComputeTotals(&inv).Total
	client := inv.ClientInfo.Name
	if client == "" || client == "N/A" {
		client = "client"
	}
	if companyName == "" {
		companyName = "Votre entreprise"
	}
	return fmt.Sprintf(
		"Bonjour %s,\n\nVeuillez trouver ci-joint la facture %s au montant de %.2f $ (taxes incluses).\n\nMerci de votre confiance!\n\n%s",
		client, inv.InvoiceNumber, total, companyName)
}

// escape percent-encodes for a mailto query. QueryEscape's '+' for spaces
// is not understood by mail clients, so spaces become %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
