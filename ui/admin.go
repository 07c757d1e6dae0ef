package ui

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"formsheet/adapters/csvexport"
	"formsheet/app"
	"formsheet/domain/ingest"
	"formsheet/models"
	"formsheet/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AdminApp is the operator shell: manual schema setup, test submissions,
// CSV export, ingestion stats and a notification test. It is a thin adapter
// over the core contract with no correctness requirements of its own.
type AdminApp struct {
	router      *chi.Mux
	store       ports.TabularStore
	coordinator *ingest.Coordinator
	statsSvc    *app.StatsService
	notifier    ports.Notifier
	lockTimeout time.Duration
}

// NewAdminApp creates the admin shell. notifier may be nil when
// notifications are disabled.
func NewAdminApp(store ports.TabularStore, coordinator *ingest.Coordinator, statsSvc *app.StatsService, notifier ports.Notifier, lockTimeout time.Duration) *AdminApp {
	a := &AdminApp{
		router:      chi.NewRouter(),
		store:       store,
		coordinator: coordinator,
		statsSvc:    statsSvc,
		notifier:    notifier,
		lockTimeout: lockTimeout,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

func (a *AdminApp) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
}

func (a *AdminApp) setupRoutes() {
	a.router.Post("/admin/setup", a.handleSetup)
	a.router.Post("/admin/test", a.handleTestSubmission)
	a.router.Post("/admin/notify", a.handleNotifyTest)
	a.router.Get("/admin/export.csv", a.handleExport)
	a.router.Get("/admin/stats", a.handleStats)
	a.router.Get("/admin/about", a.handleAbout)
}

// handleSetup forces a schema ensure under the store lock, healing a
// missing header without waiting for the next submission.
func (a *AdminApp) handleSetup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.lockTimeout)
	defer cancel()

	if err := a.store.AcquireExclusive(ctx); err != nil {
		a.renderJSON(w, models.ErrorResult("Le service est occupé, veuillez réessayer"))
		return
	}
	defer a.store.Release()

	schema, err := ingest.NewSchemaManager(a.store).Ensure()
	if err != nil {
		log.Printf("[Admin] Schema setup failed: %v", err)
		a.renderJSON(w, models.ErrorResult("L'initialisation du stockage a échoué"))
		return
	}
	a.renderJSON(w, map[string]interface{}{"result": "success", "schema": schema})
}

// handleTestSubmission pushes a canned record through the full protocol.
func (a *AdminApp) handleTestSubmission(w http.ResponseWriter, r *http.Request) {
	params := url.Values{}
	params.Set("timestamp", time.Now().UTC().Format(time.RFC3339))
	params.Set("nom", "Test")
	params.Set("prenom", "User")
	params.Set("email", "test@example.com")
	params.Set("telephone", "+216 12 345 678")
	params.Set("universite", "ESPRIT")
	params.Set("facebookLink", "https://facebook.com/testuser")

	result := a.coordinator.HandleSubmission(r.Context(), ingest.RawSubmission{Params: params})
	a.renderJSON(w, result)
}

func (a *AdminApp) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if a.notifier == nil {
		a.renderJSON(w, models.ErrorResult("Les notifications ne sont pas configurées"))
		return
	}
	if err := a.notifier.NotifyLastRow(r.Context()); err != nil {
		log.Printf("[Admin] Test notification failed: %v", err)
		a.renderJSON(w, models.ErrorResult("L'envoi de la notification a échoué"))
		return
	}
	a.renderJSON(w, map[string]string{"result": "success"})
}

func (a *AdminApp) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvexport.Filename(time.Now())+`"`)
	if err := csvexport.Export(w, a.store); err != nil {
		log.Printf("[Admin] CSV export failed: %v", err)
	}
}

func (a *AdminApp) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := a.statsSvc.Summarize()
	if err != nil {
		log.Printf("[Admin] Stats computation failed: %v", err)
		a.renderJSON(w, models.ErrorResult("Le calcul des statistiques a échoué"))
		return
	}
	a.renderJSON(w, summary)
}

func (a *AdminApp) handleAbout(w http.ResponseWriter, r *http.Request) {
	a.renderJSON(w, map[string]string{
		"name":    "Code Arena 2025 - Formulaire Ambassadeurs",
		"version": "2.0",
		"contact": "acm@esprit.tn",
	})
}

func (a *AdminApp) renderJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Admin] Failed to encode response: %v", err)
	}
}

// Handler exposes the underlying handler for tests.
func (a *AdminApp) Handler() http.Handler {
	return a.router
}

// Start runs the admin shell on the given address.
func (a *AdminApp) Start(addr string) error {
	log.Printf("[Admin] Listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
