// Package journal records session events: a Redis store for live fan-out
// and the latest snapshot, and an optional Postgres table of finished moves.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"github.com/redis/go-redis/v9"
)

const (
	ttlSession = 24 * time.Hour
	// recentEvents caps the per-session event list.
	recentEvents = 256
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore wraps rdb; ttl <= 0 uses 24h.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = ttlSession
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keySession(id string) string { return "hopboard:session:" + strings.TrimSpace(id) }
func (s *Store) keyLog(id string) string     { return s.keySession(id) + ":log" }

// EventsChannel is the pub/sub channel events of session id are published on.
func EventsChannel(id string) string { return "hopboard:events:" + strings.TrimSpace(id) }

func (s *Store) SaveSnapshot(ctx context.Context, snap boarddto.Snapshot) error {
	id := snap.State.SessionID
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("snapshot without session id")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.keySession(id), raw, s.ttl).Err()
}

// LoadSnapshot returns nil, nil when nothing is stored for id.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (*boarddto.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap boarddto.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// PublishEvent fans ev out on the session channel and appends it to the
// capped recent-events list.
func (s *Store) PublishEvent(ctx context.Context, ev boarddto.Event) error {
	id := ev.State.SessionID
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("event without session id")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, s.keyLog(id), raw)
	pipe.LTrim(ctx, s.keyLog(id), -recentEvents, -1)
	pipe.Expire(ctx, s.keyLog(id), s.ttl)
	pipe.Publish(ctx, EventsChannel(id), raw)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Store) RecentEvents(ctx context.Context, id string, n int) ([]boarddto.Event, error) {
	if n <= 0 || n > recentEvents {
		n = recentEvents
	}
	raws, err := s.rdb.LRange(ctx, s.keyLog(id), int64(-n), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]boarddto.Event, 0, len(raws))
	for _, raw := range raws {
		var ev boarddto.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe listens on the events channel of id. Callers close the PubSub.
func (s *Store) Subscribe(ctx context.Context, id string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, EventsChannel(id))
}

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// ParseRedisURL accepts redis:// and rediss:// URLs; rediss enables TLS.
func ParseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return opts, nil
}
