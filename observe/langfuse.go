// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package observe

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/candelalabs/agenttrace/httpclient"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracesPath is Langfuses OTLP trace ingestion endpoint, relative
// to the API host.
const tracesPath = "/api/public/otel/v1/traces"

// LangfuseConfig
type LangfuseConfig struct {
	Common

	// Host is the base URL of the Langfuse API e.g. https://cloud.langfuse.com
	Host string `config:"host"`

	// PublicKey and SecretKey are the Langfuse project API key pair
	// used to authenticate span export.
	PublicKey string `config:"publicKey"`
	SecretKey string `config:"secretKey"`

	// HTTPClient overrides the http.Client used for exporting spans.
	HTTPClient *http.Client
}

// LangfuseOption
type LangfuseOption interface {
	ApplyLangfuse(*LangfuseConfig)
}

type langfuseOptionFunc func(*LangfuseConfig)

func (f langfuseOptionFunc) ApplyLangfuse(cfg *LangfuseConfig) {
	f(cfg)
}

// LangfuseHost sets the base URL of the Langfuse API.
func LangfuseHost(host string) LangfuseOption {
	return langfuseOptionFunc(func(cfg *LangfuseConfig) {
		cfg.Host = host
	})
}

// LangfuseKeys sets the Langfuse project API key pair.
func LangfuseKeys(publicKey, secretKey string) LangfuseOption {
	return langfuseOptionFunc(func(cfg *LangfuseConfig) {
		cfg.PublicKey = publicKey
		cfg.SecretKey = secretKey
	})
}

// LangfuseHTTPClient overrides the http.Client used for exporting spans.
func LangfuseHTTPClient(c *http.Client) LangfuseOption {
	return langfuseOptionFunc(func(cfg *LangfuseConfig) {
		cfg.HTTPClient = c
	})
}

// Langfuse returns an Initializer which exports spans to a Langfuse
// project over OTLP/HTTP.
func Langfuse(opts ...LangfuseOption) Initializer {
	cfg := LangfuseConfig{}
	for _, opt := range opts {
		opt.ApplyLangfuse(&cfg)
	}
	return cfg
}

// Init implements the Initializer interface.
func (cfg LangfuseConfig) Init(ctx context.Context) (trace.TracerProvider, error) {
	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpclient.New(
			httpclient.Timeout(10*time.Second),
			httpclient.RetryRequests(),
		)
	}

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(strings.TrimSuffix(cfg.Host, "/")+tracesPath),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + basicAuth(cfg.PublicKey, cfg.SecretKey),
		}),
		otlptracehttp.WithHTTPClient(client),
	)
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(exporter)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	return tp, nil
}

func basicAuth(publicKey, secretKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(publicKey + ":" + secretKey))
}
