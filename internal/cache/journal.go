package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/chroma/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultJournalQueue is the Redis list finished rounds are pushed onto.
const DefaultJournalQueue = "chroma_rounds"

// RoundRecord is the summary of one finished round.
type RoundRecord struct {
	Code       string `json:"code"`
	TargetName string `json:"target_name"`
	TargetHex  string `json:"target_hex"`
	Duration   int    `json:"duration"`
	Cancelled  bool   `json:"cancelled"`
	EndedAt    int64  `json:"ended_at"`
}

// RoundJournal pushes finished rounds to a Redis queue for offline consumers.
type RoundJournal struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// NewRoundJournal returns a journal writing to queue (DefaultJournalQueue if empty).
func NewRoundJournal(rdb *redis.Client, queue string, logger *logrus.Logger) *RoundJournal {
	if queue == "" {
		queue = DefaultJournalQueue
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RoundJournal{rdb: rdb, queue: queue, logger: logger}
}

// Publish serializes record to JSON and RPushes it onto the queue.
func (j *RoundJournal) Publish(ctx context.Context, record RoundRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}
	if err := j.rdb.RPush(ctx, j.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.queue, err)
	}
	return nil
}

// Observe adapts the journal to session.WithRoundObserver. Failures are logged,
// never propagated to the round.
func (j *RoundJournal) Observe(res session.RoundResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := j.Publish(ctx, RoundRecord{
		Code:       res.Code,
		TargetName: res.Target.Name,
		TargetHex:  res.Target.Hex,
		Duration:   res.Duration,
		Cancelled:  res.Cancelled,
		EndedAt:    res.EndedAt.UnixMilli(),
	})
	if err != nil {
		j.logger.WithField("code", res.Code).Warnf("round journal: %v", err)
	}
}

// Next blocks up to timeout for the oldest journaled round. It returns
// (nil, nil) when the queue stayed empty.
func (j *RoundJournal) Next(ctx context.Context, timeout time.Duration) (*RoundRecord, error) {
	res, err := j.rdb.BLPop(ctx, timeout, j.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", j.queue, err)
	}
	// res[0] is the queue name and res[1] the payload
	var record RoundRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid round record: %w", err)
	}
	return &record, nil
}
