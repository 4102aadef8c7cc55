package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/aodr3w/order-book-engine/pkg/core"
	"github.com/aodr3w/order-book-engine/pkg/exchange"
	"github.com/aodr3w/order-book-engine/pkg/instrument"
	"github.com/aodr3w/order-book-engine/pkg/store"
)

const defaultTradesLimit = 100

// Server exposes the command surface over REST and WebSocket.
type Server struct {
	app    *exchange.App
	router *mux.Router
	log    *zap.SugaredLogger
}

// NewServer wires the routes onto a fresh router.
func NewServer(app *exchange.App, log *zap.SugaredLogger) *Server {
	s := &Server{
		app:    app,
		router: mux.NewRouter(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	s.router.HandleFunc("/orders/{pair}/{id}", s.handleCancelOrder).Methods("DELETE")
	s.router.HandleFunc("/book/{pair}", s.handleGetBook).Methods("GET")
	s.router.HandleFunc("/trades/{pair}", s.handleGetTrades).Methods("GET")
	s.router.HandleFunc("/ws/{pair}", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS, ready to serve.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var payload NewOrder
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.log.Warnw("order_rejected", "reason", "malformed JSON", "err", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := s.app.Engine(payload.Symbol)
	if err != nil {
		s.log.Warnw("order_rejected", "reason", "unsupported symbol", "symbol", payload.Symbol)
		s.respondCommandError(w, err)
		return
	}

	result, err := engine.Submit(exchange.SubmitRequest{
		Side:     payload.Side,
		Kind:     payload.OrderType,
		Price:    payload.Price,
		Quantity: payload.Quantity,
	})
	if err != nil {
		s.log.Warnw("order_rejected",
			"reason", err.Error(),
			"side", payload.Side.String(),
			"order_type", payload.OrderType.String(),
			"quantity", payload.Quantity,
			"symbol", payload.Symbol)
		s.respondCommandError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, OrderAck{OrderID: result.OrderID, Trades: result.Trades})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	engine, err := s.app.Engine(vars["pair"])
	if err != nil {
		s.respondCommandError(w, err)
		return
	}

	id, err := core.ParseID(vars["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := engine.Cancel(id); err != nil {
		s.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	engine, err := s.app.Engine(mux.Vars(r)["pair"])
	if err != nil {
		s.respondCommandError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, engine.Snapshot())
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultTradesLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	page, err := s.app.Trades(mux.Vars(r)["pair"], limit, q.Get("after"))
	if err != nil {
		s.respondCommandError(w, err)
		return
	}

	w.Header().Set("x-effective-limit", strconv.Itoa(page.EffectiveLimit))
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondCommandError maps the command error taxonomy onto HTTP statuses
// and the uniform {"error": ...} body.
func (s *Server) respondCommandError(w http.ResponseWriter, err error) {
	var unsupported *instrument.UnsupportedSymbolError
	if errors.As(err, &unsupported) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":     "unsupported symbol",
			"supported": unsupported.Supported,
		})
		return
	}

	var bad *exchange.BadRequestError
	if errors.As(err, &bad) {
		respondError(w, http.StatusBadRequest, bad.Reason)
		return
	}

	switch {
	case errors.Is(err, exchange.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, store.ErrInvalidCursor):
		respondError(w, http.StatusBadRequest, "invalid cursor")
	default:
		s.log.Errorw("command_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
