// Package template manages versioned, per-channel notification content
// definitions and renders them into deliverable content.
//
// A template is identified by a stable code and declares, per supported
// channel, a body (and optionally a subject) plus a variable schema. The
// renderer is pure: given the same template, channel and variable bag it
// produces byte-identical output, which makes preview endpoints and unit
// tests trivial.
//
// # Rendering
//
// Content uses a closed placeholder syntax. A placeholder is either a
// variable reference or a helper application:
//
//	Hello {{firstName}}, your quote of {{formatCurrency amount}} was
//	accepted on {{formatDate acceptedAt}}.
//
// The helper set is fixed: formatDate, formatCurrency, uppercase,
// lowercase and titlecase. There is no conditional logic, iteration or
// arbitrary expression support, so stored template content can never
// execute code.
//
// # Usage
//
//	store := template.NewMemoryStore()
//	_ = store.Create(ctx, tmpl)
//
//	r := template.NewRenderer(template.WithDefaultLocale("it"))
//	content, err := r.Render(&tmpl, notify.ChannelEmail, map[string]any{
//	    "firstName": "Ada",
//	    "amount":    150.0,
//	})
package template
