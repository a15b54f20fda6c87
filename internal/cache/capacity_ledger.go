package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"go-event-registration/pkg/app_errors"
)

// CapacityLedger tracks confirmed registrants per event against a maximum
// and offers an atomic admit-or-reject. It is a cache over the durable
// store: the registration rows remain the source of truth and Seed
// re-primes the ledger from a recount.
//
// All mutating operations for one event are serialized by the
// implementation; operations on different events never contend.
type CapacityLedger interface {
	// Seed primes the ledger for an event. max of 0 means unlimited.
	Seed(ctx context.Context, eventID uuid.UUID, max int, confirmed int) error
	// TryAdmit grants a slot iff the confirmed count is below the
	// maximum, as one indivisible operation. Returns the post-operation
	// count either way.
	TryAdmit(ctx context.Context, eventID uuid.UUID) (bool, int, error)
	// Release frees a slot (cancellation or no-show). The count never
	// goes below zero.
	Release(ctx context.Context, eventID uuid.UUID) (int, error)
	// Confirmed reads the current confirmed count.
	Confirmed(ctx context.Context, eventID uuid.UUID) (int, error)
}

type RedisCapacityLedger struct {
	client *redis.Client
}

func NewRedisCapacityLedger(client *redis.Client) *RedisCapacityLedger {
	return &RedisCapacityLedger{client: client}
}

func (l *RedisCapacityLedger) capacityKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:capacity", eventID)
}

func (l *RedisCapacityLedger) Seed(ctx context.Context, eventID uuid.UUID, max int, confirmed int) error {
	key := l.capacityKey(eventID)
	return l.client.HSet(ctx, key, map[string]interface{}{
		"max":       max,
		"confirmed": confirmed,
	}).Err()
}

// tryAdmitScript re-reads the count and compares against the maximum inside
// Redis, so concurrent admissions for the same event cannot overshoot.
const tryAdmitScript = `
	local key = KEYS[1]

	local info = redis.call('HMGET', key, 'max', 'confirmed')
	local max = info[1]
	local confirmed = info[2]

	if not max or not confirmed then
		return {-1, 0} -- ledger not seeded for this event
	end

	max = tonumber(max)
	confirmed = tonumber(confirmed)

	if max > 0 and confirmed >= max then
		return {0, confirmed} -- at capacity
	end

	confirmed = redis.call('HINCRBY', key, 'confirmed', 1)
	return {1, confirmed}
`

func (l *RedisCapacityLedger) TryAdmit(ctx context.Context, eventID uuid.UUID) (bool, int, error) {
	result, err := l.client.Eval(ctx, tryAdmitScript, []string{l.capacityKey(eventID)}).Result()
	if err != nil {
		return false, 0, err
	}

	code, count, err := decodePair(result)
	if err != nil {
		return false, 0, err
	}

	switch code {
	case 1:
		return true, count, nil
	case 0:
		return false, count, nil
	case -1:
		return false, 0, app_errors.ErrLedgerNotSeeded
	default:
		return false, 0, errors.New("unexpected try-admit result")
	}
}

const releaseScript = `
	local key = KEYS[1]

	local confirmed = redis.call('HGET', key, 'confirmed')
	if not confirmed then
		return {-1, 0}
	end

	confirmed = tonumber(confirmed)
	if confirmed <= 0 then
		return {1, 0}
	end

	confirmed = redis.call('HINCRBY', key, 'confirmed', -1)
	return {1, confirmed}
`

func (l *RedisCapacityLedger) Release(ctx context.Context, eventID uuid.UUID) (int, error) {
	result, err := l.client.Eval(ctx, releaseScript, []string{l.capacityKey(eventID)}).Result()
	if err != nil {
		return 0, err
	}

	code, count, err := decodePair(result)
	if err != nil {
		return 0, err
	}
	if code == -1 {
		return 0, app_errors.ErrLedgerNotSeeded
	}
	return count, nil
}

func (l *RedisCapacityLedger) Confirmed(ctx context.Context, eventID uuid.UUID) (int, error) {
	val, err := l.client.HGet(ctx, l.capacityKey(eventID), "confirmed").Int()
	if err == redis.Nil {
		return 0, app_errors.ErrLedgerNotSeeded
	}
	return val, err
}

func decodePair(result interface{}) (int64, int, error) {
	resSlice, ok := result.([]interface{})
	if !ok || len(resSlice) != 2 {
		return 0, 0, errors.New("unexpected ledger script result shape")
	}
	code, ok := resSlice[0].(int64)
	if !ok {
		return 0, 0, errors.New("unexpected ledger script result code")
	}
	count, ok := resSlice[1].(int64)
	if !ok {
		return 0, 0, errors.New("unexpected ledger script result count")
	}
	return code, int(count), nil
}
