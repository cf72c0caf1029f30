package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chainwatch/internal/address"
	"chainwatch/internal/chain"
	"chainwatch/internal/config"
	"chainwatch/internal/hmacauth"
	"chainwatch/internal/indexer"
	"chainwatch/internal/invoice"
	"chainwatch/internal/metrics"
	"chainwatch/internal/orderstore"
)

// Waker forces an immediate watch cycle on one chain.
type Waker interface {
	Wake(id chain.ID) bool
}

// Deps are the collaborators the API serves from. Watchers and Indexers may
// be nil; the wake route then answers 503 and health skips indexer probes.
type Deps struct {
	Registry *chain.Registry
	Codec    address.Codec
	Invoices *invoice.Generator
	Orders   orderstore.Store
	Watchers Waker
	Indexers map[chain.ID]indexer.Client
	Metrics  *metrics.Registry
	Logger   logrus.FieldLogger
}

type Server struct {
	cfg        *config.AppConfig
	deps       Deps
	hmac       *hmacauth.Verifier
	httpServer *http.Server
	log        logrus.FieldLogger
	dbHealthFn func(context.Context) error
}

func NewServer(cfg *config.AppConfig, deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	s := &Server{
		cfg:  cfg,
		deps: deps,
		hmac: &hmacauth.Verifier{
			Secret:  cfg.Service.HMACSecret,
			MaxSkew: cfg.HMACClockSkew(),
		},
		log: deps.Logger.WithField("component", "server"),
	}

	if checker, ok := deps.Orders.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/addresses/resolve", s.handleResolve)
	mux.Handle("POST /api/v1/invoices", s.hmac.Middleware(http.HandlerFunc(s.handleInvoice)))
	mux.Handle("POST /api/v1/watchers/{chain}/wake", s.hmac.Middleware(http.HandlerFunc(s.handleWake)))
	mux.HandleFunc("GET /api/v1/chains", s.handleChains)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.Handle("GET /api/v1/metrics", deps.Metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           requestIDMiddleware(s.logRequests(mux)),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type resolveRequest struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
}

type resolveResponse struct {
	Chain      string `json:"chain"`
	Address    string `json:"address"`
	Script     string `json:"script"`
	Scripthash string `json:"scripthash"`
}

type invoiceRequest struct {
	Chain   string `json:"chain"`
	OrderID string `json:"orderId"`
}

type invoiceResponse struct {
	Chain          string `json:"chain"`
	OrderID        string `json:"orderId"`
	DepositAddress string `json:"depositAddress"`
}

type chainResponse struct {
	Chain                 string `json:"chain"`
	IndexerEndpoint       string `json:"indexerEndpoint"`
	RequiredConfirmations int    `json:"requiredConfirmations"`
	PollIntervalSecs      int    `json:"pollIntervalSecs"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var payload resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	id, err := s.knownChain(payload.Chain)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	script, ok := s.deps.Codec.ToScript(id, payload.Address)
	if !ok {
		s.deps.Metrics.IncAddressResolution(id.String(), "rejected")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": fmt.Sprintf("address is not a valid %s address", id),
		})
		return
	}
	s.deps.Metrics.IncAddressResolution(id.String(), "ok")

	writeJSON(w, http.StatusOK, resolveResponse{
		Chain:      id.String(),
		Address:    payload.Address,
		Script:     hex.EncodeToString(script),
		Scripthash: address.Scripthash(script),
	})
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	var payload invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json payload", http.StatusBadRequest)
		return
	}
	id, err := s.knownChain(payload.Chain)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}

	order := orderstore.Order{
		OrderID:        orderID,
		PriceChain:     id.String(),
		DepositAddress: s.deps.Invoices.Generate(id.String(), orderID),
	}
	if err := s.deps.Orders.Save(r.Context(), order); err != nil {
		s.log.WithError(err).WithField("order_id", orderID).Error("failed to save order")
		http.Error(w, "failed to save order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, invoiceResponse{
		Chain:          order.PriceChain,
		OrderID:        order.OrderID,
		DepositAddress: order.DepositAddress,
	})
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	if s.deps.Watchers == nil {
		http.Error(w, "watchers are not running", http.StatusServiceUnavailable)
		return
	}
	id, err := chain.ParseID(r.PathValue("chain"))
	if err != nil || !s.deps.Watchers.Wake(id) {
		http.Error(w, "unknown chain", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"chain": id.String(), "status": "waking"})
}

func (s *Server) handleChains(w http.ResponseWriter, _ *http.Request) {
	cfgs := s.deps.Registry.All()
	out := make([]chainResponse, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, chainResponse{
			Chain:                 c.ID.String(),
			IndexerEndpoint:       c.IndexerEndpoint,
			RequiredConfirmations: c.RequiredConfirmations,
			PollIntervalSecs:      int(c.PollInterval / time.Second),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type probe struct {
	Connected bool    `json:"connected"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	dbInfo := probe{Connected: true}
	if s.dbHealthFn != nil {
		dbInfo = runProbe(ctx, s.dbHealthFn)
		overallHealthy = overallHealthy && dbInfo.Connected
	}

	indexers := make(map[string]probe, len(s.deps.Indexers))
	for id, client := range s.deps.Indexers {
		checker, ok := client.(indexer.HealthChecker)
		if !ok {
			indexers[id.String()] = probe{Connected: true}
			continue
		}
		p := runProbe(ctx, checker.Ping)
		indexers[id.String()] = p
		overallHealthy = overallHealthy && p.Connected
	}

	status := "healthy"
	code := http.StatusOK
	if !overallHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, struct {
		Status   string           `json:"status"`
		Database probe            `json:"database"`
		Indexers map[string]probe `json:"indexers"`
	}{
		Status:   status,
		Database: dbInfo,
		Indexers: indexers,
	})
}

func runProbe(ctx context.Context, fn func(context.Context) error) probe {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		return probe{Error: err.Error()}
	}
	return probe{
		Connected: true,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func (s *Server) knownChain(raw string) (chain.ID, error) {
	id, err := chain.ParseID(raw)
	if err != nil {
		return "", err
	}
	if _, ok := s.deps.Registry.Get(id); !ok {
		return "", fmt.Errorf("%w: %s", chain.ErrUnknownChain, id)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  r.Header.Get("X-Request-Id"),
		}).Debug("request served")
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		next.ServeHTTP(w, r)
	})
}
