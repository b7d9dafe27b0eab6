// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package appbuilder provides middleware for composing [agenttrace.AppBuilder]s.
package appbuilder

import (
	"context"

	"github.com/candelalabs/agenttrace"
	"github.com/candelalabs/agenttrace/config"
	"github.com/candelalabs/agenttrace/internal/try"
)

// Recover will wrap the given [agenttrace.AppBuilder] with panic recovery.
func Recover[T any](builder agenttrace.AppBuilder[T]) agenttrace.AppBuilder[T] {
	return agenttrace.AppBuilderFunc[T](func(ctx context.Context, cfg T) (_ agenttrace.App, err error) {
		defer try.Recover(&err)

		return builder.Build(ctx, cfg)
	})
}

// FromConfig returns a [agenttrace.AppBuilder] which unmarshals
// the given [agenttrace.AppBuilder]s input type, T, from a [config.Source].
func FromConfig[T any](builder agenttrace.AppBuilder[T]) agenttrace.AppBuilder[config.Source] {
	return agenttrace.AppBuilderFunc[config.Source](func(ctx context.Context, src config.Source) (agenttrace.App, error) {
		m, err := config.Read(src)
		if err != nil {
			return nil, err
		}

		var cfg T
		err = m.Unmarshal(&cfg)
		if err != nil {
			return nil, err
		}

		return builder.Build(ctx, cfg)
	})
}
