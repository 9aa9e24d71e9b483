package commission

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invitelink/backend/internal/models"
)

// EnqueueOrderFunc hands an order-completed event to the queue. Provided by
// main as a closure over river.Client.Insert.
type EnqueueOrderFunc func(ctx context.Context, inviteeID string, orderAmount decimal.Decimal, orderTime time.Time, orderID string) error

// RateAdmin manages the append-only rate history.
type RateAdmin interface {
	Append(ctx context.Context, rec *models.RateRecord) error
	List(ctx context.Context) ([]*models.RateRecord, error)
}

// ConfigAdmin reads and upserts global commission parameters.
type ConfigAdmin interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value, description string) error
}

// LedgerReader answers balance queries outside any settlement transaction.
type LedgerReader interface {
	UnsettledSum(ctx context.Context, inviterID string) (decimal.Decimal, error)
}

type Handler struct {
	calc    *Calculator
	rates   RateAdmin
	config  ConfigAdmin
	ledger  LedgerReader
	enqueue EnqueueOrderFunc
	log     *slog.Logger
}

func NewHandler(calc *Calculator, rates RateAdmin, config ConfigAdmin, ledger LedgerReader, enqueue EnqueueOrderFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{calc: calc, rates: rates, config: config, ledger: ledger, enqueue: enqueue, log: log}
}

type orderRequest struct {
	InviteeID   string          `json:"invitee_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	OrderTime   *time.Time      `json:"order_time"`
	OrderID     string          `json:"order_id"`
}

func (req *orderRequest) validate() string {
	if req.InviteeID == "" {
		return "invitee_id is required"
	}
	if req.OrderAmount.IsNegative() {
		return "order_amount must not be negative"
	}
	return ""
}

func (req *orderRequest) orderTime() time.Time {
	if req.OrderTime != nil {
		return *req.OrderTime
	}
	return time.Now()
}

type commissionEntry struct {
	InviterID string `json:"inviter_id"`
	Amount    string `json:"amount"`
}

// OrderCompleted handles POST /commission/order-completed: the synchronous
// order boundary. Responds with one entry per commission record created.
func (h *Handler) OrderCompleted(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	recs, err := h.calc.Compute(r.Context(), req.InviteeID, req.OrderAmount, req.orderTime(), req.OrderID)
	switch {
	case errors.Is(err, ErrConfigIncomplete), errors.Is(err, ErrConfigInvalid), errors.Is(err, ErrNoEffectiveRate):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.log.Error("commission calculation failed", "invitee_id", req.InviteeID, "order_id", req.OrderID, "error", err)
		http.Error(w, "commission calculation failed", http.StatusInternalServerError)
		return
	}

	resp := make([]commissionEntry, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, commissionEntry{InviterID: rec.InviterID, Amount: rec.Amount.String()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// EnqueueOrder handles POST /commission/orders: the asynchronous order
// boundary. The event is queued and calculated by the worker.
func (h *Handler) EnqueueOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if err := h.enqueue(r.Context(), req.InviteeID, req.OrderAmount, req.orderTime(), req.OrderID); err != nil {
		h.log.Error("enqueue order failed", "invitee_id", req.InviteeID, "order_id", req.OrderID, "error", err)
		http.Error(w, "enqueue order failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type appendRateRequest struct {
	AdminID     string          `json:"admin_id"`
	Rate        decimal.Decimal `json:"rate"`
	EffectiveAt *time.Time      `json:"effective_at"`
	Description string          `json:"description"`
}

// AppendRate handles POST /commission/rate: appends a rate history record.
func (h *Handler) AppendRate(w http.ResponseWriter, r *http.Request) {
	var req appendRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.AdminID == "" {
		http.Error(w, "admin_id is required", http.StatusBadRequest)
		return
	}
	if !req.Rate.IsPositive() || req.Rate.GreaterThan(decimal.NewFromInt(1)) {
		http.Error(w, "rate must be within (0,1]", http.StatusBadRequest)
		return
	}
	effectiveAt := time.Now()
	if req.EffectiveAt != nil {
		effectiveAt = *req.EffectiveAt
	}
	rec := &models.RateRecord{
		AdminID:     req.AdminID,
		Rate:        req.Rate,
		EffectiveAt: effectiveAt,
		Description: req.Description,
	}
	if err := h.rates.Append(r.Context(), rec); err != nil {
		h.log.Error("append rate failed", "admin_id", req.AdminID, "error", err)
		http.Error(w, "append rate failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListRates handles GET /commission/rate: the full rate history, newest
// effective date first.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	recs, err := h.rates.List(r.Context())
	if err != nil {
		h.log.Error("list rates failed", "error", err)
		http.Error(w, "list rates failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

type setConfigRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// SetConfig handles PUT /commission/config: upserts base_rate or max_level,
// applying the same bounds the calculator enforces.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req setConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if msg := validateConfigValue(req.Key, req.Value); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if err := h.config.Set(r.Context(), req.Key, req.Value, req.Description); err != nil {
		h.log.Error("set config failed", "key", req.Key, "error", err)
		http.Error(w, "set config failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": req.Key, "value": req.Value})
}

// Available handles GET /commission/available?user_id=...: the inviter's
// current settleable balance.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	sum, err := h.ledger.UnsettledSum(r.Context(), userID)
	if err != nil {
		h.log.Error("available commission lookup failed", "user_id", userID, "error", err)
		http.Error(w, "available commission lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "available": sum.String()})
}

// GetConfig handles GET /commission/config/{key}.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, found, err := h.config.Get(r.Context(), key)
	if err != nil {
		h.log.Error("get config failed", "key", key, "error", err)
		http.Error(w, "get config failed", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "config key not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func validateConfigValue(key, value string) string {
	switch key {
	case models.ConfigKeyBaseRate:
		v, err := decimal.NewFromString(value)
		if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			return "base_rate must be a number within [0,1]"
		}
	case models.ConfigKeyMaxLevel:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 10 {
			return "max_level must be an integer within [1,10]"
		}
	default:
		return "unknown config key"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
