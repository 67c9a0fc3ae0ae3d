package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "groupchange:rewrites:"

// Entry 一次已提交的改写
type Entry struct {
	ID              string    `json:"id"`
	OrderID         int64     `json:"order_id"`
	Scope           string    `json:"scope"`
	Family          string    `json:"family"`
	Target          string    `json:"target"`
	TargetGroup     string    `json:"target_group,omitempty"`
	Selected        []string  `json:"selected,omitempty"`
	AffectedCount   int64     `json:"affected_count"`
	ChangedCount    int64     `json:"changed_count"`
	UnresolvedCount int64     `json:"unresolved_count"`
	Actor           string    `json:"actor,omitempty"`
	RequestID       string    `json:"request_id,omitempty"`
	At              time.Time `json:"at"`
}

// Journal 按订单保存最近的改写记录（Redis list，新记录在前）
type Journal struct {
	rdb  *redis.Client
	size int64
}

// New 创建改写日志；size 为每个订单保留的条数
func New(rdb *redis.Client, size int) *Journal {
	if size <= 0 {
		size = 50
	}
	return &Journal{rdb: rdb, size: int64(size)}
}

func key(orderID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, orderID)
}

// Append 追加一条记录并裁剪到保留条数
func (j *Journal) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	k := key(e.OrderID)
	_, err = j.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, k, payload)
		pipe.LTrim(ctx, k, 0, j.size-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// Recent 订单最近的 limit 条改写记录，新记录在前
func (j *Journal) Recent(ctx context.Context, orderID int64, limit int) ([]Entry, error) {
	if limit <= 0 || int64(limit) > j.size {
		limit = int(j.size)
	}
	raw, err := j.rdb.LRange(ctx, key(orderID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
