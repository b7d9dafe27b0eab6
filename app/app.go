// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides helpers for common agenttrace.App implementation patterns.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/candelalabs/agenttrace"
	"github.com/candelalabs/agenttrace/internal/try"
	"github.com/candelalabs/agenttrace/lifecycle"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover will wrap the given [agenttrace.App] with panic recovery.
// If the recovered panic value implements [error] then it will
// be directly returned. If it does not implement [error] then a
// [try.PanicError] will be returned instead.
func Recover(base agenttrace.App) agenttrace.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return base.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [agenttrace.App] in an implementation
// that cancels the [context.Context] that's passed to base.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(base agenttrace.App, signals ...os.Signal) agenttrace.App {
	return runFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return base.Run(sigCtx)
	})
}

// WithLifecycleHooks wraps a given [agenttrace.App] in an implementation
// that makes lc available to base.Run via its [context.Context] and always
// runs the hooks registered on lc after the underlying Run returns.
func WithLifecycleHooks(base agenttrace.App, lc *lifecycle.Context) agenttrace.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer func() {
			runPostRunHook(ctx, lc.PostRun(), &err)
		}()

		return base.Run(lifecycle.NewContext(ctx, lc))
	})
}

// PostRun wraps a given [agenttrace.App] in an implementation that always
// runs the given [lifecycle.Hook] after the underlying Run returns,
// regardless if it returned an error or panicked.
func PostRun(base agenttrace.App, hook lifecycle.Hook) agenttrace.App {
	return runFunc(func(ctx context.Context) (err error) {
		defer runPostRunHook(ctx, hook, &err)

		return base.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook lifecycle.Hook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(ctx)

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)
}
