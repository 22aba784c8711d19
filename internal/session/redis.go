package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	keyPrefix        = "ladder:session:"
	indexKey         = "ladder:sessions"
	maxUpdateRetries = 50
)

// redisStore shares sessions between instances. Updates use WATCH/MULTI so a
// concurrent writer on the same key forces a retry instead of a lost update.
type redisStore struct {
	client *redis.Client
}

var _ Store = (*redisStore)(nil)

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func sessionKey(matchID string) string { return keyPrefix + matchID }

func (r *redisStore) Create(ctx context.Context, s Session) error {
	data, err := msgpack.Marshal(s.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.MatchID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return ErrExists
	}
	if err := r.client.SAdd(ctx, indexKey, s.MatchID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

func (r *redisStore) Get(ctx context.Context, matchID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Votes == nil {
		s.Votes = map[string]string{}
	}
	return &s, nil
}

func (r *redisStore) Update(ctx context.Context, matchID string, fn UpdateFunc) (*Session, error) {
	key := sessionKey(matchID)
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		var updated *Session
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to get session: %w", err)
			}
			s, err := decode(data)
			if err != nil {
				return err
			}
			if err := fn(s); err != nil {
				return err
			}
			out, err := msgpack.Marshal(s)
			if err != nil {
				return fmt.Errorf("failed to encode session: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, 0)
				return nil
			})
			if err != nil {
				return err
			}
			updated = s
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug("Session update conflicted, retrying", "matchID", matchID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, ErrConflict
}

func (r *redisStore) Delete(ctx context.Context, matchID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(matchID))
		pipe.SRem(ctx, indexKey, matchID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *redisStore) List(ctx context.Context) ([]Session, error) {
	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	list := make([]Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			r.client.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	sortSessions(list)
	return list, nil
}
