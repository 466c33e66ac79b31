package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ozfantasy/trade-window/internal/domain/trade"
	"github.com/ozfantasy/trade-window/internal/platform/logging"
)

const (
	defaultRolloverWorkers = 8
	maxRolloverWorkers     = 64

	rolloverStatusSuccess = "success"
	rolloverStatusFailed  = "failed"
)

type RolloverInput struct {
	LeagueID   string
	MaxWorkers int
}

type RolloverResult struct {
	LeagueID     string               `json:"league_id"`
	UserCount    int                  `json:"user_count"`
	SuccessCount int                  `json:"success_count"`
	FailedCount  int                  `json:"failed_count"`
	AppliedCount int                  `json:"applied_count"`
	AutoCancels  int                  `json:"auto_cancel_count"`
	WorkerCount  int                  `json:"worker_count"`
	Users        []RolloverUserResult `json:"users"`
}

type RolloverUserResult struct {
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	Applied    int    `json:"applied"`
	Cancelled  int    `json:"cancelled"`
	DurationMs int64  `json:"duration_ms"`
	Message    string `json:"message,omitempty"`
}

// RolloverService settles due pending trades for every user in a league. It
// owns no clock and no timer: an external scheduler calls Run at round
// boundaries, and the per-user work goes through TradeService so it holds the
// same locks as live traffic.
type RolloverService struct {
	trades *TradeService
	logger *logging.Logger
}

func NewRolloverService(trades *TradeService, logger *logging.Logger) *RolloverService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RolloverService{trades: trades, logger: logger}
}

func (s *RolloverService) Run(ctx context.Context, input RolloverInput) (RolloverResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RolloverService.Run")
	defer span.End()

	input.LeagueID = strings.TrimSpace(input.LeagueID)
	if input.LeagueID == "" {
		return RolloverResult{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	userIDs, err := s.trades.stateRepo.ListUsersWithPending(ctx, input.LeagueID)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("list users with pending trades: %w", err)
	}

	workerCount := normalizeRolloverWorkerCount(input.MaxWorkers, len(userIDs))
	result := RolloverResult{
		LeagueID:    input.LeagueID,
		UserCount:   len(userIDs),
		WorkerCount: workerCount,
		Users:       make([]RolloverUserResult, 0, len(userIDs)),
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	results := make(chan RolloverUserResult, len(userIDs))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var appliedCount atomic.Int32
	var cancelCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RolloverResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, userID := range userIDs {
		userID := userID
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := RolloverUserResult{UserID: userID}

			changed, err := s.trades.ApplyDuePending(ctx, input.LeagueID, userID)
			row.DurationMs = time.Since(start).Milliseconds()
			if err != nil {
				row.Status = rolloverStatusFailed
				row.Message = err.Error()
				failedCount.Add(1)
				s.logger.ErrorContext(ctx, "rollover failed for user",
					"league_id", input.LeagueID, "user_id", userID, "error", err)
				results <- row
				return
			}

			for _, record := range changed {
				switch record.Status {
				case trade.StatusApplied:
					row.Applied++
					appliedCount.Add(1)
				case trade.StatusCancelled:
					row.Cancelled++
					cancelCount.Add(1)
				}
			}
			row.Status = rolloverStatusSuccess
			successCount.Add(1)
			results <- row
		}); err != nil {
			workers.Done()
			return RolloverResult{}, fmt.Errorf("submit user to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Users = append(result.Users, row)
	}
	sort.SliceStable(result.Users, func(i, j int) bool {
		return result.Users[i].UserID < result.Users[j].UserID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.AppliedCount = int(appliedCount.Load())
	result.AutoCancels = int(cancelCount.Load())

	s.logger.InfoContext(ctx, "rollover finished",
		"league_id", input.LeagueID,
		"users", result.UserCount,
		"applied", result.AppliedCount,
		"auto_cancelled", result.AutoCancels,
		"failed", result.FailedCount,
	)

	return result, nil
}

func normalizeRolloverWorkerCount(requested, userCount int) int {
	count := requested
	if count <= 0 {
		count = defaultRolloverWorkers
	}
	if count > maxRolloverWorkers {
		count = maxRolloverWorkers
	}
	if userCount > 0 && count > userCount {
		count = userCount
	}
	return count
}
