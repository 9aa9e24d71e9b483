package main

import (
	"net/http"

	"github.com/invitelink/backend/internal/commission"
	"github.com/invitelink/backend/internal/referral"
	"github.com/invitelink/backend/internal/settlement"
	"github.com/invitelink/backend/internal/stats"
)

// RegisterRoutes wires every endpoint onto the mux. Link management and
// statistics live under /link, commission operations under /commission.
func RegisterRoutes(
	mux *http.ServeMux,
	commissionH *commission.Handler,
	settlementH *settlement.Handler,
	referralH *referral.Handler,
	statsH *stats.Handler,
) {
	// Referral links
	mux.HandleFunc("POST /link/create", referralH.CreateLink)
	mux.HandleFunc("POST /link/register", referralH.Register)

	// Link statistics and listings
	mux.HandleFunc("GET /link/stats", statsH.LinkStats)
	mux.HandleFunc("GET /link/user-links", statsH.UserLinks)
	mux.HandleFunc("GET /link/commission-detail/{code}", statsH.LinkDetail)
	mux.HandleFunc("GET /link/all", statsH.AllLinks)

	// Commission calculation and settlement
	mux.HandleFunc("POST /commission/order-completed", commissionH.OrderCompleted)
	mux.HandleFunc("POST /commission/orders", commissionH.EnqueueOrder)
	mux.HandleFunc("POST /commission/settle", settlementH.Settle)
	mux.HandleFunc("GET /commission/available", commissionH.Available)
	mux.HandleFunc("GET /commission/settlement-history", statsH.SettlementHistory)
	mux.HandleFunc("GET /commission/records", statsH.CommissionRecords)

	// Admin
	mux.HandleFunc("POST /commission/rate", commissionH.AppendRate)
	mux.HandleFunc("GET /commission/rate", commissionH.ListRates)
	mux.HandleFunc("PUT /commission/config", commissionH.SetConfig)
	mux.HandleFunc("GET /commission/config/{key}", commissionH.GetConfig)
}
