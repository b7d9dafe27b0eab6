// Copyright (c) 2026 Candela Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"testing"

	"github.com/candelalabs/agenttrace/config/key"

	"github.com/stretchr/testify/require"
)

type unknownKeyer struct{}

func (unknownKeyer) Key() string {
	return "unknown"
}

func TestMap_Set(t *testing.T) {
	t.Run("will set a single name key", func(t *testing.T) {
		m := make(Map)
		err := m.Set(key.Name("a"), 1)
		require.Nil(t, err)
		require.Equal(t, 1, m["a"])
	})

	t.Run("will set a nested key chain", func(t *testing.T) {
		m := make(Map)
		err := m.Set(key.Chain{key.Name("a"), key.Name("b")}, 2)
		require.Nil(t, err)

		sub, ok := m["a"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, 2, sub["b"])
	})

	t.Run("will return an EmptyKeyChainError for an empty chain", func(t *testing.T) {
		m := make(Map)
		err := m.Set(key.Chain{}, 3)

		var kerr EmptyKeyChainError
		require.ErrorAs(t, err, &kerr)
		require.Equal(t, 3, kerr.Value)
	})

	t.Run("will return an UnexpectedKeyValueTypeError when overriding a scalar with a map", func(t *testing.T) {
		m := Map{"a": 1}
		err := m.Set(key.Chain{key.Name("a"), key.Name("b")}, 2)

		var kerr UnexpectedKeyValueTypeError
		require.ErrorAs(t, err, &kerr)
		require.Equal(t, "a", kerr.Key)
	})

	t.Run("will return an UnknownKeyerError for unsupported keyers", func(t *testing.T) {
		m := make(Map)
		err := m.Set(unknownKeyer{}, 4)

		var kerr UnknownKeyerError
		require.ErrorAs(t, err, &kerr)
	})
}
