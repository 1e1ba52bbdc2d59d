package template_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

func quoteTemplate() template.Template {
	return template.Template{
		Code:     "quote_accepted",
		Name:     "Quote Accepted",
		Category: "quote",
		Priority: notify.PriorityHigh,
		Channels: []notify.Channel{notify.ChannelEmail, notify.ChannelPush},
		Variables: []template.Variable{
			{Name: "firstName", Type: template.VariableString, Required: true},
			{Name: "amount", Type: template.VariableNumber, Required: true},
			{Name: "acceptedAt", Type: template.VariableDate},
			{Name: "appName", Type: template.VariableString, Default: "Notifykit"},
		},
		Content: map[notify.Channel]template.Content{
			notify.ChannelEmail: {
				Subject: "Your quote was accepted, {{firstName}}",
				Body:    "Hello {{firstName}}, your quote of {{formatCurrency amount}} was accepted.",
			},
			notify.ChannelPush: {
				Body: "Quote accepted: {{formatCurrency amount}}",
			},
		},
		IsActive: true,
	}
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	t.Run("renders subject and body", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		r := template.NewRenderer()

		content, err := r.Render(&tmpl, notify.ChannelEmail, map[string]any{
			"firstName": "Ada",
			"amount":    150.0,
		})
		require.NoError(t, err)
		assert.Equal(t, "Your quote was accepted, Ada", content.Subject)
		assert.Contains(t, content.Body, "Hello Ada")
		assert.Contains(t, content.Body, "150.00")
	})

	t.Run("deterministic output", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		r := template.NewRenderer(template.WithDefaultLocale("it"))
		vars := map[string]any{
			"firstName":  "Ada",
			"amount":     1250.5,
			"acceptedAt": time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		}

		first, err := r.Render(&tmpl, notify.ChannelEmail, vars)
		require.NoError(t, err)

		for range 10 {
			again, err := r.Render(&tmpl, notify.ChannelEmail, vars)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("missing required variable", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		r := template.NewRenderer()

		_, err := r.Render(&tmpl, notify.ChannelEmail, map[string]any{"firstName": "Ada"})
		var missing *template.MissingVariableError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "amount", missing.Name)
	})

	t.Run("default value fills absent optional variable", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		tmpl.Content[notify.ChannelPush] = template.Content{Body: "Welcome to {{appName}}"}
		r := template.NewRenderer()

		content, err := r.Render(&tmpl, notify.ChannelPush, map[string]any{
			"firstName": "Ada",
			"amount":    1.0,
		})
		require.NoError(t, err)
		assert.Equal(t, "Welcome to Notifykit", content.Body)
	})

	t.Run("unsupported channel", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		r := template.NewRenderer()

		_, err := r.Render(&tmpl, notify.ChannelSMS, map[string]any{
			"firstName": "Ada",
			"amount":    1.0,
		})
		assert.ErrorIs(t, err, template.ErrChannelNotSupported)
	})

	t.Run("unknown helper surfaces RenderError", func(t *testing.T) {
		t.Parallel()

		tmpl := quoteTemplate()
		tmpl.Content[notify.ChannelPush] = template.Content{Body: "{{shout firstName}}"}
		r := template.NewRenderer()

		_, err := r.Render(&tmpl, notify.ChannelPush, map[string]any{
			"firstName": "Ada",
			"amount":    1.0,
		})
		var renderErr *template.RenderError
		require.ErrorAs(t, err, &renderErr)
	})
}

func TestRenderer_Helpers(t *testing.T) {
	t.Parallel()

	render := func(t *testing.T, body string, vars map[string]any, opts ...template.RendererOption) string {
		t.Helper()

		tmpl := template.Template{
			Code:     "helper_probe",
			Name:     "Helper Probe",
			Channels: []notify.Channel{notify.ChannelPush},
			Variables: []template.Variable{
				{Name: "v", Required: true},
			},
			Content: map[notify.Channel]template.Content{
				notify.ChannelPush: {Body: body},
			},
		}
		r := template.NewRenderer(opts...)
		content, err := r.Render(&tmpl, notify.ChannelPush, vars)
		require.NoError(t, err)
		return content.Body
	}

	t.Run("uppercase", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "ADA", render(t, "{{uppercase v}}", map[string]any{"v": "ada"}))
	})

	t.Run("lowercase", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "ada", render(t, "{{lowercase v}}", map[string]any{"v": "ADA"}))
	})

	t.Run("titlecase", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Ada Lovelace", render(t, "{{titlecase v}}", map[string]any{"v": "ada lovelace"}))
	})

	t.Run("formatDate localizes month", func(t *testing.T) {
		t.Parallel()

		date := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "05 March 2024", render(t, "{{formatDate v}}", map[string]any{"v": date}))
		assert.Equal(t, "05 marzo 2024",
			render(t, "{{formatDate v}}", map[string]any{"v": date}, template.WithDefaultLocale("it")))
	})

	t.Run("formatDate parses ISO strings", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "01 January 2025", render(t, "{{formatDate v}}", map[string]any{"v": "2025-01-01"}))
	})

	t.Run("formatCurrency keeps minor units", func(t *testing.T) {
		t.Parallel()

		out := render(t, "{{formatCurrency v}}", map[string]any{"v": 150.0})
		assert.Contains(t, out, "150.00")
	})

	t.Run("plain number substitution", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "150", render(t, "{{v}}", map[string]any{"v": 150.0}))
	})
}
