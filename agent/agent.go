// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package agent invokes Amazon Bedrock agents inside an explicit
// OpenTelemetry span and exposes their streamed responses.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/candelalabs/agenttrace/completion"
	"github.com/candelalabs/agenttrace/otelslog"
	"github.com/candelalabs/agenttrace/slogfield"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type agentRuntimeAPI interface {
	InvokeAgent(context.Context, *bedrockagentruntime.InvokeAgentInput, ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
	InvokeInlineAgent(context.Context, *bedrockagentruntime.InvokeInlineAgentInput, ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeInlineAgentOutput, error)
}

type noopLogHandler struct{}

func (noopLogHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (noopLogHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h noopLogHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return h }
func (h noopLogHandler) WithGroup(_ string) slog.Handler             { return h }

type clientOptions struct {
	logHandler        slog.Handler
	guardrailInterval int32
}

// ClientOption
type ClientOption func(*clientOptions)

// LogHandler sets the slog.Handler the client logs to.
func LogHandler(h slog.Handler) ClientOption {
	return func(co *clientOptions) {
		co.logHandler = h
	}
}

// ApplyGuardrailInterval sets the number of characters between guardrail
// evaluations when streaming the final response. Defaults to 10.
func ApplyGuardrailInterval(n int32) ClientOption {
	return func(co *clientOptions) {
		co.guardrailInterval = n
	}
}

// Client invokes Bedrock agents via the Agents for Amazon Bedrock runtime.
type Client struct {
	log               *slog.Logger
	logHandler        slog.Handler
	api               agentRuntimeAPI
	guardrailInterval int32
}

// NewClient wraps an already constructed Bedrock agent runtime client.
func NewClient(api *bedrockagentruntime.Client, opts ...ClientOption) *Client {
	return newClient(api, opts...)
}

// NewFromConfig constructs a Client directly from an aws.Config.
func NewFromConfig(cfg aws.Config, opts ...ClientOption) *Client {
	return newClient(bedrockagentruntime.NewFromConfig(cfg), opts...)
}

func newClient(api agentRuntimeAPI, opts ...ClientOption) *Client {
	co := &clientOptions{
		logHandler:        noopLogHandler{},
		guardrailInterval: 10,
	}
	for _, opt := range opts {
		opt(co)
	}
	return &Client{
		log:               otelslog.New(co.logHandler),
		logHandler:        co.logHandler,
		api:               api,
		guardrailInterval: co.guardrailInterval,
	}
}

// Request describes a single invocation of an existing Bedrock agent.
type Request struct {
	// AgentID and AgentAliasID identify the agent to invoke.
	AgentID      string
	AgentAliasID string

	// SessionID groups invocations into a conversation. A fresh
	// session id is generated when left empty.
	SessionID string

	// InputText is the user prompt for the agent.
	InputText string

	// Streaming requests the final response be streamed as it is
	// generated instead of in a single terminal chunk.
	Streaming bool

	// UserID, ModelID and Tags are only recorded on the invocation
	// span for filtering in the observability backend.
	UserID  string
	ModelID string
	Tags    []string
}

// InvokeError occurs when the agent runtime rejects or fails an invocation.
type InvokeError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InvokeError) Error() string {
	return fmt.Sprintf("failed to invoke agent: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvokeError) Unwrap() error {
	return e.Cause
}

// Invoke calls the agent identified by the request. The returned Response
// must be closed once its completion stream has been consumed.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()
	}

	spanCtx, span := otel.Tracer("agent").Start(
		ctx,
		"Client.Invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(invokeAttrs(req, sessionID)...),
	)
	defer span.End()

	input := &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(req.AgentID),
		AgentAliasId: aws.String(req.AgentAliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(req.InputText),
		// trace events must be enabled for the agents reasoning steps
		// to reach the observability backend
		EnableTrace: aws.Bool(true),
	}
	if req.Streaming {
		input.StreamingConfigurations = &types.StreamingConfigurations{
			ApplyGuardrailInterval: aws.Int32(c.guardrailInterval),
			StreamFinalResponse:    true,
		}
	}

	out, err := c.api.InvokeAgent(spanCtx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logInvokeError(spanCtx, err, req.AgentID)
		return nil, InvokeError{Cause: err}
	}

	c.log.InfoContext(spanCtx, "invoked agent",
		slogfield.String("agent_id", req.AgentID),
		slogfield.String("session_id", sessionID),
		slogfield.Bool("streaming", req.Streaming),
	)
	return &Response{
		SessionID: sessionID,
		stream:    out.GetStream(),
	}, nil
}

// InlineRequest describes a single invocation of an inline agent, that is,
// an agent defined entirely by the request instead of a pre-created one.
type InlineRequest struct {
	// FoundationModel and Instruction define the inline agent.
	FoundationModel string
	Instruction     string

	// InputText is the user prompt for the agent.
	InputText string

	// SessionID groups invocations into a conversation. A fresh
	// session id is generated when left empty.
	SessionID string

	// Streaming requests the final response be streamed as it is
	// generated instead of in a single terminal chunk.
	Streaming bool

	// UserID and Tags are only recorded on the invocation span.
	UserID string
	Tags   []string

	// Optional inline agent capabilities passed through to the runtime.
	ActionGroups   []types.AgentActionGroup
	KnowledgeBases []types.KnowledgeBase
	PromptOverride *types.PromptOverrideConfiguration
	SessionState   *types.InlineSessionState
}

// InvokeInline calls an inline agent defined by the request. The returned
// InlineResponse must be closed once its completion stream has been consumed.
func (c *Client) InvokeInline(ctx context.Context, req InlineRequest) (*InlineResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()
	}

	spanCtx, span := otel.Tracer("agent").Start(
		ctx,
		"Client.InvokeInline",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(invokeInlineAttrs(req, sessionID)...),
	)
	defer span.End()

	input := &bedrockagentruntime.InvokeInlineAgentInput{
		FoundationModel:             aws.String(req.FoundationModel),
		Instruction:                 aws.String(req.Instruction),
		SessionId:                   aws.String(sessionID),
		InputText:                   aws.String(req.InputText),
		EnableTrace:                 aws.Bool(true),
		ActionGroups:                req.ActionGroups,
		KnowledgeBases:              req.KnowledgeBases,
		PromptOverrideConfiguration: req.PromptOverride,
		InlineSessionState:          req.SessionState,
	}
	if req.Streaming {
		input.StreamingConfigurations = &types.StreamingConfigurations{
			ApplyGuardrailInterval: aws.Int32(c.guardrailInterval),
			StreamFinalResponse:    true,
		}
	}

	out, err := c.api.InvokeInlineAgent(spanCtx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logInvokeError(spanCtx, err, "inline")
		return nil, InvokeError{Cause: err}
	}

	c.log.InfoContext(spanCtx, "invoked inline agent",
		slogfield.String("session_id", sessionID),
		slogfield.Bool("streaming", req.Streaming),
	)
	return &InlineResponse{
		SessionID: sessionID,
		stream:    out.GetStream(),
	}, nil
}

// Complete invokes the agent and reduces its streamed response to a
// single accumulated text result.
func (c *Client) Complete(ctx context.Context, req Request) (completion.Result, error) {
	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return completion.Result{}, err
	}
	defer resp.Close()

	return completion.Reduce(ctx, resp.Completion(), completion.LogHandler(c.logHandler)), nil
}

// CompleteInline invokes the inline agent and reduces its streamed
// response to a single accumulated text result.
func (c *Client) CompleteInline(ctx context.Context, req InlineRequest) (completion.Result, error) {
	resp, err := c.InvokeInline(ctx, req)
	if err != nil {
		return completion.Result{}, err
	}
	defer resp.Close()

	return completion.Reduce(ctx, resp.Completion(), completion.LogHandler(c.logHandler)), nil
}

func (c *Client) logInvokeError(ctx context.Context, err error, agentID string) {
	attrs := []any{
		slogfield.Error(err),
		slogfield.String("agent_id", agentID),
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, slogfield.String("aws_error_code", apiErr.ErrorCode()))
	}
	c.log.ErrorContext(ctx, "failed to invoke agent", attrs...)
}

func invokeAttrs(req Request, sessionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.system", "aws.bedrock"),
		attribute.String("bedrock.agent_id", req.AgentID),
		attribute.String("bedrock.agent_alias_id", req.AgentAliasID),
		attribute.String("bedrock.session_id", sessionID),
		attribute.Bool("bedrock.streaming", req.Streaming),
	}
	if req.ModelID != "" {
		attrs = append(attrs, attribute.String("gen_ai.request.model", req.ModelID))
	}
	if req.UserID != "" {
		attrs = append(attrs, attribute.String("user.id", req.UserID))
	}
	if len(req.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("tags", req.Tags))
	}
	return attrs
}

func invokeInlineAttrs(req InlineRequest, sessionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.system", "aws.bedrock"),
		attribute.String("gen_ai.request.model", req.FoundationModel),
		attribute.String("bedrock.session_id", sessionID),
		attribute.Bool("bedrock.streaming", req.Streaming),
		attribute.Bool("bedrock.inline_agent", true),
	}
	if req.UserID != "" {
		attrs = append(attrs, attribute.String("user.id", req.UserID))
	}
	if len(req.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("tags", req.Tags))
	}
	return attrs
}
