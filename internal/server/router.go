package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/facturevox/facturevox/auth"
	"github.com/facturevox/facturevox/httpx"
	"github.com/facturevox/facturevox/internal/autosave"
	"github.com/facturevox/facturevox/internal/chat"
	"github.com/facturevox/facturevox/internal/config"
	"github.com/facturevox/facturevox/internal/handlers"
	"github.com/facturevox/facturevox/internal/models"
	"github.com/facturevox/facturevox/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares
// applied. The autosave coordinator is shared with main, which runs its
// flush loop.
func New(db *gorm.DB, cfg config.Config, coord *autosave.Coordinator) http.Handler {
	mux := http.NewServeMux()
	store := services.NewInvoiceStore(db)

	// RequireAuth verifies the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	handlers.NewAuthHandler(db).Register(mux)

	protect := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	ih := handlers.NewInvoiceHandler(store, coord)
	mux.Handle("/api/invoices", protect(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/api/invoices/get", protect(ih.Get))
	mux.Handle("/api/invoices/save", protect(ih.Save))
	mux.Handle("/api/invoices/delete", protect(ih.Delete))
	mux.Handle("/api/invoices/status", protect(ih.Status))

	ch := handlers.NewCompanyHandler(store)
	mux.Handle("/api/company", protect(ch.Handle))

	chatHandler := handlers.NewChatHandler(store, cfg.OpenAIKey, cfg.OpenAIModel)
	mux.Handle("/api/chat/message", protect(chatHandler.Message))
	mux.Handle("/api/chat/messages", protect(chatHandler.Messages))
	mux.Handle("/api/chat/voice", protect(chatHandler.Voice))

	var drafter *chat.Drafter
	if cfg.OpenAIKey != "" {
		drafter = chat.NewDrafter(cfg.OpenAIKey, cfg.OpenAIModel)
	}
	eh := handlers.NewExportHandler(store, drafter)
	mux.Handle("/api/invoices/pdf", protect(eh.PDFDownload))
	mux.Handle("/api/invoices/email", protect(eh.Email))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
