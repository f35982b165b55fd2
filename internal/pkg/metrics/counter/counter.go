package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OlehKovalenko/CoachPilot/internal/pkg/cache"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/database"
)

const (
	processedKey = "payments:counters:processed"
	creditsKey   = "payments:counters:credits"

	fieldSeparator = "|"
)

// AddProcessedPayment increments the pending reconciliation counters for a
// status in Redis. The field encodes the day so the flush can aggregate into
// per-day rows.
func AddProcessedPayment(status string, credits int) error {
	ctx := context.Background()
	field := statField(time.Now(), status)
	rdb := cache.GetClient()

	if err := rdb.HIncrBy(ctx, processedKey, field, 1).Err(); err != nil {
		return err
	}
	if credits > 0 {
		return rdb.HIncrBy(ctx, creditsKey, field, int64(credits)).Err()
	}
	return nil
}

func statField(day time.Time, status string) string {
	return day.Format("2006-01-02") + fieldSeparator + status
}

// FlushAll drains both counter hashes into the payment_stats table
func FlushAll() error {
	counts, err := drainHash(processedKey)
	if err != nil {
		return err
	}
	credits, err := drainHash(creditsKey)
	if err != nil {
		return err
	}
	if len(counts) == 0 && len(credits) == 0 {
		return nil
	}
	return upsertStats(counts, credits)
}

// drainHash atomically moves a Redis hash to a temp key and reads it, so
// in-flight increments land in the next flush instead of being lost.
func drainHash(redisKey string) (map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil, nil
		}
		if err.Error() == "redis: nil" {
			return nil, nil
		}
		return nil, err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(data))
	for field, raw := range data {
		v, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || v == 0 {
			continue
		}
		result[field] = v
	}
	return result, nil
}

// upsertStats applies the drained increments as one batched MySQL upsert on
// the (date, status) unique key.
func upsertStats(counts, credits map[string]int64) error {
	type row struct {
		date    string
		status  string
		count   int64
		credits int64
	}

	merged := make(map[string]*row)
	add := func(field string, count, creditSum int64) {
		parts := strings.SplitN(field, fieldSeparator, 2)
		if len(parts) != 2 {
			return
		}
		r, ok := merged[field]
		if !ok {
			r = &row{date: parts[0], status: parts[1]}
			merged[field] = r
		}
		r.count += count
		r.credits += creditSum
	}
	for field, v := range counts {
		add(field, v, 0)
	}
	for field, v := range credits {
		add(field, 0, v)
	}
	if len(merged) == 0 {
		return nil
	}

	rows := make([]*row, 0, len(merged))
	for _, r := range merged {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].date != rows[j].date {
			return rows[i].date < rows[j].date
		}
		return rows[i].status < rows[j].status
	})

	var builder strings.Builder
	args := make([]interface{}, 0, len(rows)*4)
	builder.WriteString("INSERT INTO payment_stats (date, status, count, credits_granted, created_at, updated_at) VALUES ")
	for i, r := range rows {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("(?, ?, ?, ?, NOW(), NOW())")
		args = append(args, r.date, r.status, r.count, r.credits)
	}
	builder.WriteString(" ON DUPLICATE KEY UPDATE count = count + VALUES(count), credits_granted = credits_granted + VALUES(credits_granted), updated_at = NOW()")

	return database.GetDB().Exec(builder.String(), args...).Error
}
