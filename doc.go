// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package agenttrace wires Amazon Bedrock agent invocations together with
// OpenTelemetry tracing and an observability backend for the exported spans.
//
// The agent package invokes Bedrock agents (regular and inline) inside an
// explicit span. The completion package reduces the streamed agent response
// to a single accumulated text result which tolerates partial failures
// mid-stream. The observe package initializes span export to Langfuse, any
// OTLP collector or local stdout.
package agenttrace
