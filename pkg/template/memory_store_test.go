package template_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

func TestMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		require.NoError(t, store.Create(ctx, quoteTemplate()))

		got, err := store.Get(ctx, "quote_accepted")
		require.NoError(t, err)
		assert.Equal(t, "quote_accepted", got.Code)
		assert.Equal(t, 1, got.Version)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate create rejected", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		require.NoError(t, store.Create(ctx, quoteTemplate()))
		assert.ErrorIs(t, store.Create(ctx, quoteTemplate()), template.ErrAlreadyExists)
	})

	t.Run("get unknown code", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, template.ErrNotFound)
	})

	t.Run("update bumps version monotonically", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		require.NoError(t, store.Create(ctx, quoteTemplate()))

		tmpl := quoteTemplate()
		tmpl.Name = "Quote Accepted v2"
		updated, err := store.Update(ctx, tmpl)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		tmpl.Name = "Quote Accepted v3"
		updated, err = store.Update(ctx, tmpl)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Version)
	})

	t.Run("update unknown code", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		_, err := store.Update(ctx, quoteTemplate())
		assert.ErrorIs(t, err, template.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		require.NoError(t, store.Create(ctx, quoteTemplate()))
		require.NoError(t, store.Delete(ctx, "quote_accepted"))

		_, err := store.Get(ctx, "quote_accepted")
		assert.ErrorIs(t, err, template.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "quote_accepted"), template.ErrNotFound)
	})

	t.Run("stored template is isolated from caller mutation", func(t *testing.T) {
		t.Parallel()

		store := template.NewMemoryStore()
		tmpl := quoteTemplate()
		require.NoError(t, store.Create(ctx, tmpl))

		tmpl.Content[notify.ChannelEmail] = template.Content{Body: "mutated"}

		got, err := store.Get(ctx, "quote_accepted")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", got.Content[notify.ChannelEmail].Body)
	})
}

func TestMemoryStore_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := template.NewMemoryStore()

	quote := quoteTemplate()
	require.NoError(t, store.Create(ctx, quote))

	welcome := quoteTemplate()
	welcome.Code = "welcome_user"
	welcome.Name = "Welcome"
	welcome.Category = "auth"
	welcome.IsActive = false
	require.NoError(t, store.Create(ctx, welcome))

	t.Run("no filter returns all sorted by category", func(t *testing.T) {
		t.Parallel()

		all, err := store.List(ctx, template.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "auth", all[0].Category)
	})

	t.Run("filter by category", func(t *testing.T) {
		t.Parallel()

		got, err := store.List(ctx, template.Filter{Category: "quote"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "quote_accepted", got[0].Code)
	})

	t.Run("filter by active", func(t *testing.T) {
		t.Parallel()

		active := true
		got, err := store.List(ctx, template.Filter{Active: &active})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "quote_accepted", got[0].Code)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		t.Parallel()

		got, err := store.List(ctx, template.Filter{Search: "WELCOME"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "welcome_user", got[0].Code)
	})
}
