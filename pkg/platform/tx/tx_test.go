package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTx(t *testing.T) {
	t.Run("nil transaction leaves the context bare", func(t *testing.T) {
		ctx := WithTx(context.Background(), nil)
		_, ok := From(ctx)
		assert.False(t, ok)
	})

	t.Run("transaction round-trips", func(t *testing.T) {
		want := &sql.Tx{}
		got, ok := From(WithTx(context.Background(), want))
		assert.True(t, ok)
		assert.Same(t, want, got)
	})
}
