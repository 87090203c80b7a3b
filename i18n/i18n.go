package i18n

import "strings"

// DefaultLang is French: the application targets Québec small businesses.
const DefaultLang = "fr"

var translations = map[string]map[string]string{
	"fr": {
		"required":              "Requis",
		"must_be_positive":      "Doit être positif",
		"out_of_range":          "Hors limites",
		"invalid_date":          "Date invalide (AAAA-MM-JJ attendu)",
		"last_invoice":          "Vous ne pouvez pas supprimer la dernière facture.",
		"chat_error":            "Désolé, une erreur s'est produite lors du traitement de votre demande.",
		"invoice_created":       "Parfait! J'ai créé votre facture.",
		"invoice_create_failed": "J'ai compris les détails, mais une erreur technique m'a empêché de créer la facture.",
		"voice_unavailable":     "La reconnaissance vocale n'est pas disponible.",
		"ai_unavailable":        "L'assistant IA n'est pas configuré.",
	},
	"en": {
		"required":              "Required",
		"must_be_positive":      "Must be positive",
		"out_of_range":          "Out of range",
		"invalid_date":          "Invalid date (expected YYYY-MM-DD)",
		"last_invoice":          "You cannot delete the last remaining invoice.",
		"chat_error":            "Sorry, something went wrong while handling your request.",
		"invoice_created":       "Done! I created your invoice.",
		"invoice_create_failed": "I understood the details, but a technical error prevented me from creating the invoice.",
		"voice_unavailable":     "Speech recognition is not available.",
		"ai_unavailable":        "The AI assistant is not configured.",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header.
// Unknown or empty input falls back to French.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		code := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(code, "-;"); i >= 0 {
			code = code[:i]
		}
		if _, ok := translations[code]; ok {
			return code
		}
	}
	return DefaultLang
}

// T translates a message code. Unknown languages fall back to French;
// unknown codes fall back to the code itself so missing entries stay visible.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if msg, ok := m[code]; ok {
			return msg
		}
	}
	if msg, ok := translations[DefaultLang][code]; ok {
		return msg
	}
	return code
}
