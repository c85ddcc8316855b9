// Package storetest holds a conformance suite shared by every
// ports.SessionStore implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/layer-3/orbisauth/core"
	"github.com/layer-3/orbisauth/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreTests runs the suite against stores built by factory.
// Each subtest gets a fresh, empty store.
func RunSessionStoreTests(t *testing.T, factory func(t *testing.T) ports.SessionStore) {
	t.Run("ReadEmpty", func(t *testing.T) {
		s := factory(t)
		_, err := s.Read(context.Background())
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		require.NoError(t, s.Write(ctx, "first"))
		got, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "first", got)
	})

	t.Run("WriteOverwrites", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		require.NoError(t, s.Write(ctx, "first"))
		require.NoError(t, s.Write(ctx, "second"))
		got, err := s.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "second", got)
	})

	t.Run("Clear", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)

		require.NoError(t, s.Write(ctx, "first"))
		require.NoError(t, s.Clear(ctx))
		_, err := s.Read(ctx)
		assert.ErrorIs(t, err, core.ErrNoSession)
	})

	t.Run("ClearEmpty", func(t *testing.T) {
		s := factory(t)
		assert.NoError(t, s.Clear(context.Background()))
	})
}
