package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

// StateProvider serves authoritative snapshots.
type StateProvider interface {
	Snapshot(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error)
	ListAuctions(ctx context.Context) ([]uuid.UUID, error)
}

// StateHandler serves snapshot queries over plain HTTP.
type StateHandler struct {
	stateProvider StateProvider
}

func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{stateProvider: provider}
}

// HandleGetAuctionState handles GET /api/auctions/{id}/state
func (h *StateHandler) HandleGetAuctionState(w http.ResponseWriter, r *http.Request) {
	auctionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apperr.Validation("invalid auction id format", err))
		return
	}

	snap, err := h.stateProvider.Snapshot(r.Context(), auctionID)
	if err != nil {
		e := apperr.As(err)
		status := http.StatusInternalServerError
		if e.Code == apperr.CodeAuctionNotFound {
			status = http.StatusNotFound
		}
		log.Error().Err(err).Str("auction_id", auctionID.String()).Msg("failed to get auction state")
		writeError(w, status, e)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Error().Err(err).Msg("failed to encode auction state response")
	}
}

// HandleListAuctions handles GET /api/auctions
func (h *StateHandler) HandleListAuctions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.stateProvider.ListAuctions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list auctions")
		writeError(w, http.StatusInternalServerError, apperr.As(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"auctions": ids}); err != nil {
		log.Error().Err(err).Msg("failed to encode auction list")
	}
}

func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auctions", h.HandleListAuctions)
	mux.HandleFunc("GET /api/auctions/{id}/state", h.HandleGetAuctionState)
}

func writeError(w http.ResponseWriter, status int, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(e.Payload()); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}
