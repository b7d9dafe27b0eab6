// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package appbuilder

import (
	"context"
	"errors"
	"testing"

	"github.com/candelalabs/agenttrace"
	"github.com/candelalabs/agenttrace/lifecycle"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type failToInitOTel struct{}

var failedToInitOTelErr = errors.New("failed to init otel")

func (failToInitOTel) InitializeOTel(ctx context.Context) error {
	return failedToInitOTelErr
}

type noopInitOTel struct{}

func (noopInitOTel) InitializeOTel(ctx context.Context) error {
	return nil
}

type appFunc func(context.Context) error

func (f appFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type tracerProvider struct {
	tracenoop.TracerProvider
	shutdown func(context.Context) error
}

func (tp tracerProvider) Shutdown(ctx context.Context) error {
	return tp.shutdown(ctx)
}

type tracerProviderInitOTel struct{}

var errTracerProviderFailedShutdown = errors.New("failed to shutdown tracer provider")

func (tracerProviderInitOTel) InitializeOTel(ctx context.Context) error {
	otel.SetTracerProvider(tracerProvider{
		shutdown: func(ctx context.Context) error {
			return errTracerProviderFailedShutdown
		},
	})
	return nil
}

func TestOTel(t *testing.T) {
	t.Run("agenttrace.AppBuilder will return an error", func(t *testing.T) {
		t.Run("if InitializeOTel fails", func(t *testing.T) {
			b := OTel(agenttrace.AppBuilderFunc[failToInitOTel](func(ctx context.Context, cfg failToInitOTel) (agenttrace.App, error) {
				return nil, nil
			}))

			_, err := b.Build(context.Background(), failToInitOTel{})
			if !assert.ErrorIs(t, err, failedToInitOTelErr) {
				return
			}
		})

		t.Run("if the given agenttrace.AppBuilder fails", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			b := OTel(agenttrace.AppBuilderFunc[noopInitOTel](func(ctx context.Context, cfg noopInitOTel) (agenttrace.App, error) {
				return nil, buildErr
			}))

			_, err := b.Build(context.Background(), noopInitOTel{})
			if !assert.ErrorIs(t, err, buildErr) {
				return
			}
		})
	})

	t.Run("the built agenttrace.App will return an error", func(t *testing.T) {
		t.Run("if it fails to shutdown the tracer provider", func(t *testing.T) {
			b := OTel(agenttrace.AppBuilderFunc[tracerProviderInitOTel](func(ctx context.Context, cfg tracerProviderInitOTel) (agenttrace.App, error) {
				a := appFunc(func(ctx context.Context) error {
					return nil
				})
				return a, nil
			}))

			app, err := b.Build(context.Background(), tracerProviderInitOTel{})
			if !assert.Nil(t, err) {
				return
			}

			err = app.Run(context.Background())
			if !assert.ErrorIs(t, err, errTracerProviderFailedShutdown) {
				return
			}
		})
	})

	t.Run("the tracer provider shutdown will be deferred", func(t *testing.T) {
		t.Run("if a lifecycle.Context is present", func(t *testing.T) {
			b := OTel(agenttrace.AppBuilderFunc[tracerProviderInitOTel](func(ctx context.Context, cfg tracerProviderInitOTel) (agenttrace.App, error) {
				a := appFunc(func(ctx context.Context) error {
					return nil
				})
				return a, nil
			}))

			var lc lifecycle.Context
			ctx := lifecycle.NewContext(context.Background(), &lc)

			app, err := b.Build(ctx, tracerProviderInitOTel{})
			if !assert.Nil(t, err) {
				return
			}

			err = app.Run(ctx)
			if !assert.Nil(t, err) {
				return
			}

			err = lc.PostRun().Run(ctx)
			if !assert.ErrorIs(t, err, errTracerProviderFailedShutdown) {
				return
			}
		})
	})
}
