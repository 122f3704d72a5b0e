package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DefaultKeyPrefix namespaces the keys RedisJournal writes.
const DefaultKeyPrefix = "swiftshare:"

const transfersKey = "transfers"

// RedisJournal stores entries as JSON in a capped redis list, newest at the
// head.
type RedisJournal struct {
	client   *redis.Client
	key      string
	capacity int64
}

// RedisOptions configures a RedisJournal.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Capacity  int
}

// NewRedisJournal connects to redis and verifies the connection with a ping.
func NewRedisJournal(ctx context.Context, opts RedisOptions) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		logrus.WithFields(logrus.Fields{
			"function": "NewRedisJournal",
			"addr":     opts.Addr,
			"error":    err.Error(),
		}).Error("Redis unreachable")
		return nil, fmt.Errorf("%w: ping %s: %v", ErrStore, opts.Addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewRedisJournal",
		"addr":     opts.Addr,
		"db":       opts.DB,
	}).Info("Connected to redis journal")

	return NewRedisJournalWithClient(client, opts.KeyPrefix, opts.Capacity), nil
}

// NewRedisJournalWithClient wraps an existing client without pinging it.
func NewRedisJournalWithClient(client *redis.Client, prefix string, capacity int) *RedisJournal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisJournal{
		client:   client,
		key:      listKey(prefix),
		capacity: int64(capacity),
	}
}

func listKey(prefix string) string {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + transfersKey
}

// Key returns the redis list key holding the entries.
func (r *RedisJournal) Key() string {
	return r.key
}

// Record pushes e onto the list and trims it to capacity in one pipeline.
func (r *RedisJournal) Record(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrStore, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		pipe.LTrim(ctx, r.key, 0, r.capacity-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: record %s: %v", ErrStore, e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. Entries that fail to
// decode are skipped.
func (r *RedisJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStore, err)
	}
	return decodeEntries(raw), nil
}

func decodeEntries(raw []string) []Entry {
	out := make([]Entry, 0, len(raw))
	for _, s := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "RedisJournal.List",
				"error":    err.Error(),
			}).Warn("Skipping undecodable journal entry")
			continue
		}
		out = append(out, e)
	}
	return out
}

// Close releases the redis connection pool.
func (r *RedisJournal) Close() error {
	return r.client.Close()
}
