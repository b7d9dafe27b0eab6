// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package completion

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func sequenceOf(events ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func failingAfter(err error, events ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
		yield(nil, err)
	}
}

type mapperEvent struct {
	m map[string]any
}

func (e mapperEvent) AsMap() map[string]any {
	return e.m
}

func chunkEvent(payload any) Event {
	return map[string]any{
		"chunk": map[string]any{
			"bytes": payload,
		},
	}
}

func TestReduce(t *testing.T) {
	t.Run("will concatenate well-formed chunk payloads in order", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			chunkEvent([]byte("Hello, ")),
			chunkEvent([]byte("world!")),
		))

		require.Equal(t, "Hello, world!", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will skip non-chunk events without affecting ordering", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			chunkEvent([]byte("Hello, ")),
			map[string]any{"other": 1},
			chunkEvent([]byte("world!")),
		))

		require.Equal(t, "Hello, world!", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will return an empty result for a chunk missing its payload", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			map[string]any{"chunk": map[string]any{}},
		))

		require.Equal(t, "", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will skip a chunk whose value is not a mapping", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			map[string]any{"chunk": "not a mapping"},
			chunkEvent([]byte("ok")),
		))

		require.Equal(t, "ok", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will normalize events exposing the mapping conversion capability", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			mapperEvent{m: map[string]any{
				"chunk": map[string]any{
					"bytes": []byte("Hello, "),
				},
			}},
			mapperEvent{m: map[string]any{"trace": "ignored"}},
			chunkEvent([]byte("world!")),
		))

		require.Equal(t, "Hello, world!", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will skip events with no mapping shape at all", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			42,
			chunkEvent([]byte("ok")),
		))

		require.Equal(t, "ok", res.Text)
	})

	t.Run("will use a text payload as-is", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			chunkEvent("Hello, "),
			chunkEvent("world!"),
		))

		require.Equal(t, "Hello, world!", res.Text)
	})

	t.Run("will coerce non-text payloads via a generic string conversion", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf(
			chunkEvent(42),
		))

		require.Equal(t, "42", res.Text)
	})

	t.Run("will skip a chunk whose payload is not valid utf-8", func(t *testing.T) {
		var buf bytes.Buffer

		res := Reduce(
			context.Background(),
			sequenceOf(
				chunkEvent([]byte("Hello")),
				chunkEvent([]byte{0xff, 0xfe}),
				chunkEvent([]byte(", world!")),
			),
			LogHandler(slog.NewTextHandler(&buf, nil)),
		)

		require.Equal(t, "Hello, world!", res.Text)
		require.False(t, res.Truncated)
		require.Contains(t, buf.String(), "invalid utf-8")
	})

	t.Run("will return the partial accumulation when the stream fails", func(t *testing.T) {
		var buf bytes.Buffer
		streamErr := errors.New("connection reset")

		res := Reduce(
			context.Background(),
			failingAfter(streamErr, chunkEvent([]byte("A"))),
			LogHandler(slog.NewTextHandler(&buf, nil)),
		)

		require.Equal(t, "A", res.Text)
		require.True(t, res.Truncated)
		require.Contains(t, buf.String(), "failed to read agent event stream")
		require.Contains(t, buf.String(), "connection reset")
	})

	t.Run("will return an empty truncated result when the stream fails immediately", func(t *testing.T) {
		res := Reduce(
			context.Background(),
			failingAfter(errors.New("connection refused")),
			LogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		)

		require.Equal(t, "", res.Text)
		require.True(t, res.Truncated)
	})

	t.Run("will not panic when the stream itself panics", func(t *testing.T) {
		var buf bytes.Buffer

		res := Reduce(
			context.Background(),
			func(yield func(Event, error) bool) {
				if !yield(chunkEvent([]byte("A")), nil) {
					return
				}
				panic("transport exploded")
			},
			LogHandler(slog.NewTextHandler(&buf, nil)),
		)

		require.Equal(t, "A", res.Text)
		require.True(t, res.Truncated)
		require.Contains(t, buf.String(), "agent event stream panicked")
	})

	t.Run("will stop pulling once the context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		pulled := 0
		seq := func(yield func(Event, error) bool) {
			for {
				pulled += 1
				if pulled == 2 {
					cancel()
				}
				if !yield(chunkEvent([]byte("A")), nil) {
					return
				}
			}
		}

		res := Reduce(ctx, seq, LogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))

		require.Equal(t, "AA", res.Text)
		require.True(t, res.Truncated)
		require.Equal(t, 2, pulled)
	})

	t.Run("will return nothing for an empty stream", func(t *testing.T) {
		res := Reduce(context.Background(), sequenceOf())

		require.Equal(t, "", res.Text)
		require.False(t, res.Truncated)
	})

	t.Run("will produce identical output for independently materialized equal sequences", func(t *testing.T) {
		build := func() iter.Seq2[Event, error] {
			return sequenceOf(
				chunkEvent([]byte("Hello, ")),
				map[string]any{"other": 1},
				chunkEvent([]byte("world!")),
			)
		}

		first := Reduce(context.Background(), build())
		second := Reduce(context.Background(), build())

		require.Equal(t, first, second)
	})
}
