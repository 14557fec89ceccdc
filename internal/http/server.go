// Package http exposes the workbook as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"carbonledger/internal/cache"
	"carbonledger/internal/factors"
	"carbonledger/internal/middleware/security"
	"carbonledger/internal/middleware/trace"
	"carbonledger/internal/services"
	"carbonledger/internal/store"
	"carbonledger/internal/summary"
)

type Server struct {
	http.Server

	ledgerSvc   *services.LedgerService
	catalog     *factors.Catalog
	profiles    store.ProfileStore
	factorStore store.FactorStore
	advisory    *services.AdvisoryService

	rateLimiter *rateLimiter
	detector    *security.Detector

	// Aggregates are cheap but polled hard by dashboards.
	summaryCache *cache.LRUCache[summary.Summary]
	reportCache  *cache.LRUCache[[]byte]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgerSvc *services.LedgerService, catalog *factors.Catalog,
	profiles store.ProfileStore, factorStore store.FactorStore, advisory *services.AdvisoryService) *Server {

	mux := http.NewServeMux()

	s := &Server{
		ledgerSvc:        ledgerSvc,
		catalog:          catalog,
		profiles:         profiles,
		factorStore:      factorStore,
		advisory:         advisory,
		rateLimiter:      newRateLimiter(),
		detector:         security.NewDetector(),
		summaryCache:     cache.NewLRUCache[summary.Summary](16, 5*time.Minute),
		reportCache:      cache.NewLRUCache[[]byte](4, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/v1/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/v1/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/v1/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PUT /api/v1/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/v1/entries/import", s.handleImportCSV)
	mux.HandleFunc("GET /api/v1/entries/export", s.handleExportCSV)

	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/report", s.handleReport)
	mux.HandleFunc("GET /api/v1/report.pdf", s.handleReportPDF)

	mux.HandleFunc("GET /api/v1/scopes", s.handleScopes)
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	mux.HandleFunc("GET /api/v1/factors", s.handleFactors)
	mux.HandleFunc("GET /api/v1/factors/search", s.handleFactorSearch)
	mux.HandleFunc("POST /api/v1/factors", s.handleFactorUpsert)
	mux.HandleFunc("POST /api/v1/calculate", s.handleCalculate)
	mux.HandleFunc("POST /api/v1/calculate/aggregate", s.handleAggregate)

	mux.HandleFunc("GET /api/v1/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/v1/profile", s.handlePutProfile)

	mux.HandleFunc("POST /api/v1/advice/classify", s.handleAdviceClassify)
	mux.HandleFunc("POST /api/v1/advice/summary", s.handleAdviceSummary)
	mux.HandleFunc("POST /api/v1/advice/offsets", s.handleAdviceOffsets)
	mux.HandleFunc("POST /api/v1/advice/regulations", s.handleAdviceRegulations)
	mux.HandleFunc("POST /api/v1/advice/optimize", s.handleAdviceOptimize)

	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:    addr,
		Handler: traceMW.Middleware(headersMW.Middleware(s.withRateLimit(mux))),
	}

	return s
}

// withRateLimit throttles mutating requests per client IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.rateLimiter.allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// invalidateAggregates drops cached aggregates after any ledger mutation.
func (s *Server) invalidateAggregates() {
	s.summaryCache.Purge()
	s.reportCache.Purge()
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.summaryCache.CleanExpired() + s.reportCache.CleanExpired()
			if cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
