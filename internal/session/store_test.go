package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client),
	}
}

func newSession(id string, created time.Time) Session {
	return Session{
		MatchID:   id,
		GroupID:   "g1",
		TeamA:     "alpha",
		TeamB:     "beta",
		CaptainA:  "u1",
		CaptainB:  "u2",
		ChannelID: "c1",
		Status:    StatusActive,
		Votes:     map[string]string{},
		CreatedAt: created,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	created := time.UnixMilli(1_700_000_000_000)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get", func(t *testing.T) {
				require.NoError(t, store.Create(ctx, newSession("m1", created)))
				assert.ErrorIs(t, store.Create(ctx, newSession("m1", created)), ErrExists)

				s, err := store.Get(ctx, "m1")
				require.NoError(t, err)
				assert.Equal(t, "alpha", s.TeamA)
				assert.Equal(t, StatusActive, s.Status)
				assert.Empty(t, s.Votes)
				assert.True(t, created.Equal(s.CreatedAt))
			})

			t.Run("missing session", func(t *testing.T) {
				_, err := store.Get(ctx, "nope")
				assert.ErrorIs(t, err, ErrNotFound)
				_, err = store.Update(ctx, "nope", func(s *Session) error { return nil })
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("update persists mutation", func(t *testing.T) {
				s, err := store.Update(ctx, "m1", func(s *Session) error {
					s.Votes["alpha"] = "alpha"
					return nil
				})
				require.NoError(t, err)
				assert.Equal(t, map[string]string{"alpha": "alpha"}, s.Votes)

				got, err := store.Get(ctx, "m1")
				require.NoError(t, err)
				assert.Equal(t, "alpha", got.Votes["alpha"])
			})

			t.Run("failed update writes nothing", func(t *testing.T) {
				boom := errors.New("boom")
				_, err := store.Update(ctx, "m1", func(s *Session) error {
					s.Votes["beta"] = "beta"
					return boom
				})
				assert.ErrorIs(t, err, boom)

				got, err := store.Get(ctx, "m1")
				require.NoError(t, err)
				assert.NotContains(t, got.Votes, "beta")
			})

			t.Run("returned copies are detached", func(t *testing.T) {
				got, err := store.Get(ctx, "m1")
				require.NoError(t, err)
				got.Votes["beta"] = "alpha"

				again, err := store.Get(ctx, "m1")
				require.NoError(t, err)
				assert.NotContains(t, again.Votes, "beta")
			})

			t.Run("concurrent updates are serialized", func(t *testing.T) {
				require.NoError(t, store.Create(ctx, newSession("m2", created.Add(time.Second))))
				var wg sync.WaitGroup
				for i := 0; i < 10; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := store.Update(ctx, "m2", func(s *Session) error {
							s.DisputeRounds++
							return nil
						})
						assert.NoError(t, err)
					}()
				}
				wg.Wait()

				got, err := store.Get(ctx, "m2")
				require.NoError(t, err)
				assert.Equal(t, 10, got.DisputeRounds)
			})

			t.Run("list is ordered by creation", func(t *testing.T) {
				list, err := store.List(ctx)
				require.NoError(t, err)
				require.Len(t, list, 2)
				assert.Equal(t, "m1", list[0].MatchID)
				assert.Equal(t, "m2", list[1].MatchID)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, store.Delete(ctx, "m1"))
				require.NoError(t, store.Delete(ctx, "m1"))
				_, err := store.Get(ctx, "m1")
				assert.ErrorIs(t, err, ErrNotFound)

				list, err := store.List(ctx)
				require.NoError(t, err)
				assert.Len(t, list, 1)
			})
		})
	}
}

func TestAgreement(t *testing.T) {
	s := newSession("m1", time.Now())

	_, ok := s.Agreement()
	assert.False(t, ok, "no votes")

	s.Votes["alpha"] = "alpha"
	_, ok = s.Agreement()
	assert.False(t, ok, "one vote")

	s.Votes["beta"] = "beta"
	_, ok = s.Agreement()
	assert.False(t, ok, "disagreement")

	s.Votes["beta"] = "alpha"
	winner, ok := s.Agreement()
	assert.True(t, ok)
	assert.Equal(t, "alpha", winner)

	s.Votes = map[string]string{"alpha": "gamma", "beta": "gamma"}
	_, ok = s.Agreement()
	assert.False(t, ok, "agreeing on a non-participant")

	assert.True(t, s.IsParticipant("beta"))
	assert.False(t, s.IsParticipant("gamma"))
	assert.Equal(t, "beta", s.Opponent("alpha"))
	assert.Equal(t, "alpha", s.Opponent("beta"))
}
