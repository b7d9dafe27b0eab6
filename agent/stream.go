// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package agent

import (
	"iter"

	"github.com/candelalabs/agenttrace/completion"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

// sdkEvent adapts an SDK response stream member to the canonical
// mapping shape consumed by the completion package.
type sdkEvent map[string]any

// AsMap implements the [completion.Mapper] interface.
func (e sdkEvent) AsMap() map[string]any {
	return e
}

type responseStreamReader interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

// Response is the streamed result of invoking an existing agent.
type Response struct {
	// SessionID is the conversation the invocation belongs to. It
	// matches the request session id, or was generated when the
	// request left it empty.
	SessionID string

	stream responseStreamReader
}

// Completion returns the agents response events as a lazy, single pass
// sequence suitable for [completion.Reduce]. A terminal transport failure
// is surfaced as the final element of the sequence.
func (r *Response) Completion() iter.Seq2[completion.Event, error] {
	return func(yield func(completion.Event, error) bool) {
		for ev := range r.stream.Events() {
			if !yield(wrapResponseEvent(ev), nil) {
				return
			}
		}
		if err := r.stream.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Close releases the underlying event stream.
func (r *Response) Close() error {
	return r.stream.Close()
}

func wrapResponseEvent(ev types.ResponseStream) completion.Event {
	switch x := ev.(type) {
	case *types.ResponseStreamMemberChunk:
		return sdkEvent{"chunk": map[string]any{"bytes": x.Value.Bytes}}
	case *types.ResponseStreamMemberTrace:
		return sdkEvent{"trace": x.Value}
	case *types.ResponseStreamMemberReturnControl:
		return sdkEvent{"returnControl": x.Value}
	case *types.ResponseStreamMemberFiles:
		return sdkEvent{"files": x.Value}
	default:
		return sdkEvent{}
	}
}

type inlineStreamReader interface {
	Events() <-chan types.InlineAgentResponseStream
	Close() error
	Err() error
}

// InlineResponse is the streamed result of invoking an inline agent.
type InlineResponse struct {
	// SessionID is the conversation the invocation belongs to.
	SessionID string

	stream inlineStreamReader
}

// Completion returns the inline agents response events as a lazy, single
// pass sequence suitable for [completion.Reduce].
func (r *InlineResponse) Completion() iter.Seq2[completion.Event, error] {
	return func(yield func(completion.Event, error) bool) {
		for ev := range r.stream.Events() {
			if !yield(wrapInlineEvent(ev), nil) {
				return
			}
		}
		if err := r.stream.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Close releases the underlying event stream.
func (r *InlineResponse) Close() error {
	return r.stream.Close()
}

func wrapInlineEvent(ev types.InlineAgentResponseStream) completion.Event {
	switch x := ev.(type) {
	case *types.InlineAgentResponseStreamMemberChunk:
		return sdkEvent{"chunk": map[string]any{"bytes": x.Value.Bytes}}
	case *types.InlineAgentResponseStreamMemberTrace:
		return sdkEvent{"trace": x.Value}
	case *types.InlineAgentResponseStreamMemberReturnControl:
		return sdkEvent{"returnControl": x.Value}
	case *types.InlineAgentResponseStreamMemberFiles:
		return sdkEvent{"files": x.Value}
	default:
		return sdkEvent{}
	}
}
