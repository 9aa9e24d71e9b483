package settlement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	engine *Engine
	log    *slog.Logger
}

func NewHandler(engine *Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{engine: engine, log: log}
}

type settleRequest struct {
	UserID string `json:"user_id"`
}

type settleResponse struct {
	SettlementID int64  `json:"settlement_id"`
	Amount       string `json:"amount"`
}

// Settle handles POST /commission/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	s, err := h.engine.Settle(r.Context(), req.UserID)
	if errors.Is(err, ErrNoAvailableCommission) {
		http.Error(w, "no available commission to settle", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("settlement failed", "user_id", req.UserID, "error", err)
		http.Error(w, "settlement failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(settleResponse{
		SettlementID: s.ID,
		Amount:       s.TotalAmount.String(),
	})
}
