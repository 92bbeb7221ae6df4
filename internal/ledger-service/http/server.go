package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/ledger-service/dto"
	"github.com/commitcast/wager-ledger/internal/ledger-service/engine"
)

// Server expõe a superfície HTTP fina do ledger: apostar, cancelar, listar
// e consultar saldo. Toda regra de negócio vive no engine.
type Server struct {
	log    *zap.Logger
	engine *engine.WagerEngine
	apiKey string
}

func NewServer(log *zap.Logger, eng *engine.WagerEngine, apiKey string) *Server {
	return &Server{log: log, engine: eng, apiKey: apiKey}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Auth(s.apiKey))
	r.Post("/commitments/{id}/bets", s.placeWager)
	r.Get("/commitments/{id}/bets", s.listWagers)
	r.Delete("/bets/{id}", s.cancelWager)
	r.Get("/me/balance", s.getBalance)
	return r
}

func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	commitmentID := chi.URLParam(r, "id")

	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Detail: "bad json"})
		return
	}

	wager, err := s.engine.PlaceWager(r.Context(), callerID(r), commitmentID, domain.Direction(req.Direction), req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromWager(wager))
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	wagers, err := s.engine.ListWagers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.WagerResponse, 0, len(wagers))
	for _, wg := range wagers {
		out = append(out, dto.FromWager(wg))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cancelWager(w http.ResponseWriter, r *http.Request) {
	_, err := s.engine.CancelWager(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CancelResponse{
		Status:  "success",
		Message: "Bet cancelled and refunded",
	})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	acc, err := s.engine.Balance(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Balance: acc.Balance})
}

// writeError mapeia os erros nomeados de validação 1:1 pra 4xx; o resto é
// falha transitória de storage (503, seguro repetir a operação inteira).
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrSelfBet),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrCommitmentClosed),
		errors.Is(err, domain.ErrAlreadyClosed):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		// conflito que sobreviveu ao retry interno do engine
		status = http.StatusConflict
	default:
		s.log.Error("storage failure", zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
