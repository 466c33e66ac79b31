package trade

import (
	"errors"
	"fmt"
	"time"
)

var ErrDuplicateTradeID = errors.New("duplicate trade id in ledger")

// AppendRecord adds a record to the ledger. The ledger is append-only: records
// are never deleted or rewritten in place, so an id collision is an invariant
// violation on the caller's side rather than a user-facing condition.
func AppendRecord(history []Record, record Record) ([]Record, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("validate trade record: %w", err)
	}
	for _, existing := range history {
		if existing.ID == record.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTradeID, record.ID)
		}
	}

	out := make([]Record, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, record)
	return out, nil
}

// CountAppliedBetween counts applied trades whose creation timestamp falls in
// [from, to). This derivation is the authoritative tradesUsed figure; no
// separately stored counter exists, so it cannot drift.
func CountAppliedBetween(history []Record, from, to time.Time) int {
	count := 0
	for _, record := range history {
		if record.Status != StatusApplied {
			continue
		}
		if record.CreatedAt.Before(from) || !record.CreatedAt.Before(to) {
			continue
		}
		count++
	}
	return count
}

// PendingRecords returns the pending trades in ledger order.
func PendingRecords(history []Record) []Record {
	var pending []Record
	for _, record := range history {
		if record.Status == StatusPending {
			pending = append(pending, record)
		}
	}
	return pending
}

// FindRecord locates a ledger entry by id.
func FindRecord(history []Record, tradeID string) (int, Record, bool) {
	for i, record := range history {
		if record.ID == tradeID {
			return i, record, true
		}
	}
	return 0, Record{}, false
}
