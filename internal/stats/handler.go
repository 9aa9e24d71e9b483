package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/invitelink/backend/internal/models"
	"github.com/invitelink/backend/internal/repository"
)

// Handler serves the read-only statistics and listing endpoints. These are
// plain filtered aggregations over the stores; no invariants beyond
// reflecting stored data.
type Handler struct {
	referrals   *repository.ReferralRepo
	commissions *repository.CommissionRepo
	settlements *repository.SettlementRepo
	log         *slog.Logger
}

func NewHandler(referrals *repository.ReferralRepo, commissions *repository.CommissionRepo, settlements *repository.SettlementRepo, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{referrals: referrals, commissions: commissions, settlements: settlements, log: log}
}

// LinkStats handles GET /link/stats.
func (h *Handler) LinkStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	total, err := h.referrals.CountLinks(ctx)
	if err != nil {
		h.internalError(w, "link stats failed", err)
		return
	}
	todayCommission, err := h.commissions.TodayTotal(ctx)
	if err != nil {
		h.internalError(w, "link stats failed", err)
		return
	}
	todaySettled, err := h.settlements.TodayCompletedTotal(ctx)
	if err != nil {
		h.internalError(w, "link stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.LinkStats{
		TotalCreated:    total,
		TodayCommission: todayCommission,
		TodaySettled:    todaySettled,
	})
}

// UserLinks handles GET /link/user-links?user_id=...
func (h *Handler) UserLinks(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	req := parsePageRequest(r)
	links, total, err := h.referrals.UserLinks(r.Context(), userID, req)
	if err != nil {
		h.internalError(w, "list user links failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewPageResponse(links, total, req))
}

// AllLinks handles GET /link/all.
func (h *Handler) AllLinks(w http.ResponseWriter, r *http.Request) {
	req := parsePageRequest(r)
	links, total, err := h.referrals.AllLinks(r.Context(), req)
	if err != nil {
		h.internalError(w, "list links failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewPageResponse(links, total, req))
}

// LinkDetail handles GET /link/commission-detail/{code}.
func (h *Handler) LinkDetail(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.Error(w, "link code is required", http.StatusBadRequest)
		return
	}
	detail, err := h.commissions.LinkDetail(r.Context(), code)
	if err != nil {
		h.internalError(w, "link detail failed", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// SettlementHistory handles GET /commission/settlement-history?user_id=...
func (h *Handler) SettlementHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	req := parsePageRequest(r)
	history, total, err := h.settlements.HistoryByUser(r.Context(), userID, req)
	if err != nil {
		h.internalError(w, "settlement history failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewPageResponse(history, total, req))
}

// CommissionRecords handles GET /commission/records?user_id=...
func (h *Handler) CommissionRecords(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	req := parsePageRequest(r)
	recs, total, err := h.commissions.ListByInviter(r.Context(), userID, req)
	if err != nil {
		h.internalError(w, "list commission records failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewPageResponse(recs, total, req))
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.log.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func parsePageRequest(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	req := models.PageRequest{Keyword: q.Get("keyword")}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
		req.PageSize = n
	}
	if t, ok := parseDate(q.Get("start_date")); ok {
		req.StartDate = &t
	}
	if t, ok := parseDate(q.Get("end_date")); ok {
		req.EndDate = &t
	}
	req.Normalize()
	return req
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
