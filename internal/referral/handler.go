package referral

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

type createLinkRequest struct {
	InviterID string `json:"inviter_id"`
}

// CreateLink handles POST /link/create.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.InviterID == "" {
		http.Error(w, "inviter_id is required", http.StatusBadRequest)
		return
	}
	link, err := h.svc.CreateLink(r.Context(), req.InviterID)
	if err != nil {
		h.log.Error("create link failed", "inviter_id", req.InviterID, "error", err)
		http.Error(w, "create link failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(link)
}

type registerRequest struct {
	InviteeID string `json:"invitee_id"`
	Username  string `json:"username"`
	LinkCode  string `json:"link_code"`
}

// Register handles POST /link/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.InviteeID == "" || req.LinkCode == "" {
		http.Error(w, "invitee_id and link_code are required", http.StatusBadRequest)
		return
	}
	node, err := h.svc.Register(r.Context(), req.InviteeID, req.Username, req.LinkCode)
	switch {
	case errors.Is(err, ErrUnknownLinkCode):
		http.Error(w, "unknown link code", http.StatusNotFound)
		return
	case errors.Is(err, ErrAlreadyRegistered):
		http.Error(w, "invitee already registered", http.StatusConflict)
		return
	case errors.Is(err, ErrSelfReferral):
		http.Error(w, "cannot register through own link", http.StatusConflict)
		return
	case err != nil:
		h.log.Error("register failed", "invitee_id", req.InviteeID, "error", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(node)
}
