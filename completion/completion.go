// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package completion reduces a streamed agent response to a single
// accumulated text result.
//
// A streamed response is a lazy, single pass sequence of heterogeneous
// events. Only chunk events carry response text; every other event shape is
// skipped. A malformed event never aborts the stream and a failure of the
// stream itself yields the partial accumulation instead of an error.
package completion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/candelalabs/agenttrace/otelslog"
	"github.com/candelalabs/agenttrace/slogfield"
)

// Mapper is the capability of an event to convert itself
// into a canonical mapping shape.
type Mapper interface {
	AsMap() map[string]any
}

// Event is one unit of a streamed agent response. It must either be a
// map[string]any or implement [Mapper]; any other value is treated as
// a malformed event and skipped.
type Event = any

// Result is the accumulated response text reconstructed by concatenating
// chunk payloads in arrival order.
type Result struct {
	// Text is the ordered concatenation of all successfully decoded
	// chunk payloads seen before the stream ended.
	Text string

	// Truncated reports whether the stream ended before exhaustion,
	// either because reading it failed or the context was cancelled.
	// The accumulated text up to that point is still returned.
	Truncated bool
}

type options struct {
	logHandler slog.Handler
}

// Option configures the reducer.
type Option func(*options)

// LogHandler sets the slog.Handler used for reporting stream failures
// and skipped chunks. Defaults to the slog default handler.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// Reduce consumes the event sequence exactly once, in order, and returns
// the accumulated response text.
//
// Per event: the event is normalized to a mapping, classified on the
// presence of a "chunk" key and its "bytes" payload is decoded and
// appended. Events which do not match that shape contribute nothing.
// A payload which is not valid UTF-8 is reported and skipped rather
// than appended garbled.
//
// Reduce never returns an error. If reading the sequence fails, or ctx is
// cancelled, the failure is reported via the configured log handler and
// the partial accumulation is returned with Truncated set. The sequence
// is not restartable so Reduce performs no retries.
func Reduce(ctx context.Context, events iter.Seq2[Event, error], opts ...Option) (res Result) {
	o := &options{
		logHandler: slog.Default().Handler(),
	}
	for _, opt := range opts {
		opt(o)
	}
	log := otelslog.New(o.logHandler)

	var sb strings.Builder
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "agent event stream panicked", slogfield.Any("panic_value", r))
			res.Truncated = true
		}
		res.Text = sb.String()
	}()

	next, stop := iter.Pull2(events)
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			log.WarnContext(ctx, "stopping agent event stream early", slogfield.Error(err))
			res.Truncated = true
			return
		}

		ev, err, ok := next()
		if !ok {
			return
		}
		if err != nil {
			log.ErrorContext(ctx, "failed to read agent event stream", slogfield.Error(err))
			res.Truncated = true
			return
		}

		m := eventMap(ev)
		if m == nil {
			continue
		}
		chunk, ok := m["chunk"].(map[string]any)
		if !ok {
			continue
		}
		payload, ok := chunk["bytes"]
		if !ok {
			continue
		}

		text, ok := decodePayload(payload)
		if !ok {
			log.WarnContext(ctx, "skipping chunk with invalid utf-8 payload", slogfield.Int("payload_size", len(payload.([]byte))))
			continue
		}
		sb.WriteString(text)
	}
}

// eventMap normalizes an event to its canonical mapping shape. It returns
// nil for events which have no mapping shape at all.
func eventMap(ev Event) map[string]any {
	switch x := ev.(type) {
	case Mapper:
		return x.AsMap()
	case map[string]any:
		return x
	default:
		return nil
	}
}

func decodePayload(payload any) (string, bool) {
	switch x := payload.(type) {
	case []byte:
		if !utf8.Valid(x) {
			return "", false
		}
		return string(x), true
	case string:
		return x, true
	default:
		return fmt.Sprint(x), true
	}
}
