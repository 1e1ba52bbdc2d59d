package template_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

const seedYAML = `
templates:
  - code: quote_accepted
    name: Quote Accepted
    category: quote
    priority: high
    active: true
    system: true
    channels: [email, push]
    variables:
      - name: firstName
        required: true
      - name: amount
        type: number
        required: true
    content:
      email:
        subject: "Quote accepted, {{firstName}}"
        body: "Your quote of {{formatCurrency amount}} was accepted."
      push:
        body: "Quote accepted: {{formatCurrency amount}}"
`

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("parses and validates seed file", func(t *testing.T) {
		t.Parallel()

		templates, err := template.Load(strings.NewReader(seedYAML))
		require.NoError(t, err)
		require.Len(t, templates, 1)

		tmpl := templates[0]
		assert.Equal(t, "quote_accepted", tmpl.Code)
		assert.Equal(t, notify.PriorityHigh, tmpl.Priority)
		assert.True(t, tmpl.IsSystem)
		assert.True(t, tmpl.SupportsChannel(notify.ChannelPush))
	})

	t.Run("invalid template aborts the load", func(t *testing.T) {
		t.Parallel()

		broken := strings.Replace(seedYAML, "{{firstName}}", "{{lastName}}", 1)
		_, err := template.Load(strings.NewReader(broken))

		var schemaErr *template.SchemaError
		require.ErrorAs(t, err, &schemaErr)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := template.Load(strings.NewReader("templates: ["))
		require.Error(t, err)
	})
}

func TestSeed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	templates, err := template.Load(strings.NewReader(seedYAML))
	require.NoError(t, err)

	store := template.NewMemoryStore()
	require.NoError(t, template.Seed(ctx, store, templates))

	// Operator edits survive re-seeding.
	stored, err := store.Get(ctx, "quote_accepted")
	require.NoError(t, err)
	stored.Name = "Edited by operator"
	_, err = store.Update(ctx, *stored)
	require.NoError(t, err)

	require.NoError(t, template.Seed(ctx, store, templates))

	got, err := store.Get(ctx, "quote_accepted")
	require.NoError(t, err)
	assert.Equal(t, "Edited by operator", got.Name)
}
