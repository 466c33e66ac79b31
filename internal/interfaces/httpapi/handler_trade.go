package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ozfantasy/trade-window/internal/domain/roster"
	"github.com/ozfantasy/trade-window/internal/domain/trade"
	"github.com/ozfantasy/trade-window/internal/usecase"
)

func (h *Handler) GetTradeWindow(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTradeWindow")
	defer span.End()

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	window, err := h.tradeService.GetLeagueWindow(ctx, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get trade window failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueWindowToDTO(window))
}

func (h *Handler) SubmitTrade(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitTrade")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	var req submitTradeRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.tradeService.SubmitTrade(ctx, usecase.SubmitTradeInput{
		UserID:      principal.UserID,
		LeagueID:    leagueID,
		PlayerOutID: req.PlayerOutID,
		PlayerInID:  req.PlayerInID,
		Round:       req.Round,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit trade failed", "league_id", leagueID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, tradeRecordToDTO(record))
}

func (h *Handler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelTrade")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	tradeID := strings.TrimSpace(r.PathValue("tradeID"))

	if err := h.tradeService.CancelTrade(ctx, principal.UserID, leagueID, tradeID); err != nil {
		h.logger.WarnContext(ctx, "cancel trade failed", "league_id", leagueID, "user_id", principal.UserID, "trade_id", tradeID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"trade_id": tradeID, "status": string(trade.StatusCancelled)})
}

func (h *Handler) GetTradeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTradeStatus")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	status, err := h.tradeService.GetTradeStatus(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get trade status failed", "league_id", leagueID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, tradeStatusToDTO(status))
}

func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRoster")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	ros, err := h.tradeService.GetRoster(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get roster failed", "league_id", leagueID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, rosterToDTO(ros))
}

func (h *Handler) RunApplyDueTradesJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunApplyDueTradesJob")
	defer span.End()

	var req applyDueTradesJobRequest
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	workers := req.MaxWorkers
	if h.rolloverWorkerLimit > 0 && (workers == 0 || workers > h.rolloverWorkerLimit) {
		workers = h.rolloverWorkerLimit
	}

	result, err := h.rolloverService.Run(ctx, usecase.RolloverInput{
		LeagueID:   req.LeagueID,
		MaxWorkers: workers,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "apply due trades job failed", "league_id", req.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

type submitTradeRequest struct {
	PlayerOutID string `json:"player_out_id" validate:"required"`
	PlayerInID  string `json:"player_in_id" validate:"required"`
	Round       int    `json:"round" validate:"gte=0"`
}

type applyDueTradesJobRequest struct {
	LeagueID   string `json:"league_id" validate:"required"`
	MaxWorkers int    `json:"max_workers" validate:"gte=0"`
}

type tradeRecordDTO struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LeagueID    string     `json:"league_id"`
	PlayerOutID string     `json:"player_out_id"`
	PlayerInID  string     `json:"player_in_id"`
	Round       int        `json:"round"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

type tradeStatusDTO struct {
	TradesRemaining    int              `json:"trades_remaining"`
	Unlimited          bool             `json:"unlimited"`
	LockoutActive      bool             `json:"lockout_active"`
	CurrentRound       int              `json:"current_round"`
	NextBoundarySecond int64            `json:"next_boundary_in_seconds"`
	ScheduleExhausted  bool             `json:"schedule_exhausted"`
	PendingTrades      []tradeRecordDTO `json:"pending_trades"`
}

type leagueWindowDTO struct {
	LeagueID           string `json:"league_id"`
	Name               string `json:"name"`
	Season             string `json:"season"`
	TradesPerSeason    int    `json:"trades_per_season"`
	Unlimited          bool   `json:"unlimited"`
	LockoutActive      bool   `json:"lockout_active"`
	CurrentRound       int    `json:"current_round"`
	NextBoundarySecond int64  `json:"next_boundary_in_seconds"`
	ScheduleExhausted  bool   `json:"schedule_exhausted"`
}

type rosterEntryDTO struct {
	PlayerID string `json:"player_id"`
	Slot     string `json:"slot"`
}

type rosterDTO struct {
	UserID    string           `json:"user_id"`
	LeagueID  string           `json:"league_id"`
	Entries   []rosterEntryDTO `json:"entries"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func tradeRecordToDTO(record trade.Record) tradeRecordDTO {
	dto := tradeRecordDTO{
		ID:          record.ID,
		UserID:      record.UserID,
		LeagueID:    record.LeagueID,
		PlayerOutID: record.PlayerOutID,
		PlayerInID:  record.PlayerInID,
		Round:       record.Round,
		Status:      string(record.Status),
		CreatedAt:   record.CreatedAt,
	}
	if !record.ResolvedAt.IsZero() {
		resolvedAt := record.ResolvedAt
		dto.ResolvedAt = &resolvedAt
	}
	return dto
}

func tradeStatusToDTO(status usecase.TradeStatus) tradeStatusDTO {
	dto := tradeStatusDTO{
		TradesRemaining:    status.TradesRemaining,
		Unlimited:          status.Unlimited,
		LockoutActive:      status.LockoutActive,
		CurrentRound:       status.CurrentRound,
		NextBoundarySecond: int64(status.NextBoundaryIn.Seconds()),
		ScheduleExhausted:  status.ScheduleExhausted,
		PendingTrades:      make([]tradeRecordDTO, 0, len(status.PendingTrades)),
	}
	for _, record := range status.PendingTrades {
		dto.PendingTrades = append(dto.PendingTrades, tradeRecordToDTO(record))
	}
	return dto
}

func leagueWindowToDTO(window usecase.LeagueWindow) leagueWindowDTO {
	return leagueWindowDTO{
		LeagueID:           window.LeagueID,
		Name:               window.Name,
		Season:             window.Season,
		TradesPerSeason:    window.TradesPerSeason,
		Unlimited:          window.Unlimited,
		LockoutActive:      window.LockoutActive,
		CurrentRound:       window.CurrentRound,
		NextBoundarySecond: int64(window.NextBoundaryIn.Seconds()),
		ScheduleExhausted:  window.ScheduleExhausted,
	}
}

func rosterToDTO(ros roster.Roster) rosterDTO {
	dto := rosterDTO{
		UserID:    ros.UserID,
		LeagueID:  ros.LeagueID,
		Entries:   make([]rosterEntryDTO, 0, len(ros.Entries)),
		UpdatedAt: ros.UpdatedAt,
	}
	for _, entry := range ros.Entries {
		dto.Entries = append(dto.Entries, rosterEntryDTO{PlayerID: entry.PlayerID, Slot: string(entry.Slot)})
	}
	return dto
}
