// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelslog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestHandler_Handle(t *testing.T) {
	t.Run("will not add otel attrs without a span context", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(slog.NewJSONHandler(&buf, nil))

		log.InfoContext(context.Background(), "hello")

		var record map[string]any
		err := json.Unmarshal(buf.Bytes(), &record)
		require.Nil(t, err)
		require.NotContains(t, record, "otel")
	})

	t.Run("will add trace and span ids from the span context", func(t *testing.T) {
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{1},
			SpanID:  trace.SpanID{2},
		})
		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		var buf bytes.Buffer
		log := New(slog.NewJSONHandler(&buf, nil))

		log.InfoContext(ctx, "hello")

		var record struct {
			Otel struct {
				TraceID string `json:"trace_id"`
				SpanID  string `json:"span_id"`
			} `json:"otel"`
		}
		err := json.Unmarshal(buf.Bytes(), &record)
		require.Nil(t, err)
		require.Equal(t, spanCtx.TraceID().String(), record.Otel.TraceID)
		require.Equal(t, spanCtx.SpanID().String(), record.Otel.SpanID)
	})
}
