package template

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// placeholder is one parsed {{...}} occurrence. Helper is empty for plain
// variable references.
type placeholder struct {
	Expr     string
	Helper   string
	Variable string
}

// parsePlaceholders extracts all placeholders from content. The syntax is
// deliberately closed: either {{variable}} or {{helper variable}}.
func parsePlaceholders(content string) ([]placeholder, error) {
	var out []placeholder
	rest := content
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			return out, nil
		}
		close := strings.Index(rest[open:], "}}")
		if close < 0 {
			return nil, fmt.Errorf("unclosed placeholder near %q", truncate(rest[open:], 20))
		}

		expr := rest[open+2 : open+close]
		fields := strings.Fields(expr)
		switch len(fields) {
		case 1:
			out = append(out, placeholder{Expr: expr, Variable: fields[0]})
		case 2:
			out = append(out, placeholder{Expr: expr, Helper: fields[0], Variable: fields[1]})
		default:
			return nil, fmt.Errorf("malformed placeholder %q", strings.TrimSpace(expr))
		}

		rest = rest[open+close+2:]
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Renderer compiles template content and a variable bag into final
// content. Rendering is pure: no I/O, and identical inputs produce
// byte-identical output.
type Renderer struct {
	locale   language.Tag
	currency string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithDefaultLocale sets the locale used by formatDate, formatCurrency
// and titlecase. Invalid tags fall back to English.
func WithDefaultLocale(tag string) RendererOption {
	return func(r *Renderer) {
		r.locale = language.Make(tag)
	}
}

// WithCurrency sets the ISO 4217 code used by formatCurrency.
func WithCurrency(code string) RendererOption {
	return func(r *Renderer) {
		if code != "" {
			r.currency = strings.ToUpper(code)
		}
	}
}

// NewRenderer creates a renderer. Defaults: English locale, EUR currency.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		locale:   language.English,
		currency: "EUR",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render produces the final content for one channel. It fails with
// ErrChannelNotSupported when the template does not declare the channel,
// with MissingVariableError when a required variable without a default is
// absent, and with RenderError when content references an unknown helper.
func (r *Renderer) Render(tmpl *Template, ch notify.Channel, vars map[string]any) (notify.Content, error) {
	if !tmpl.SupportsChannel(ch) {
		return notify.Content{}, fmt.Errorf("%w: template %q, channel %q", ErrChannelNotSupported, tmpl.Code, ch)
	}
	content, ok := tmpl.Content[ch]
	if !ok {
		return notify.Content{}, fmt.Errorf("%w: template %q, channel %q", ErrChannelNotSupported, tmpl.Code, ch)
	}

	resolved, err := resolveVariables(tmpl, vars)
	if err != nil {
		return notify.Content{}, err
	}

	subject, err := r.expand(content.Subject, resolved)
	if err != nil {
		return notify.Content{}, err
	}
	body, err := r.expand(content.Body, resolved)
	if err != nil {
		return notify.Content{}, err
	}

	return notify.Content{Subject: subject, Body: body}, nil
}

// resolveVariables merges the variable bag with schema defaults. Required
// variables without a value and without a default abort rendering.
func resolveVariables(tmpl *Template, vars map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(tmpl.Variables))
	for _, v := range tmpl.Variables {
		if val, ok := vars[v.Name]; ok && val != nil {
			resolved[v.Name] = val
			continue
		}
		if v.Default != "" {
			resolved[v.Name] = v.Default
			continue
		}
		if v.Required {
			return nil, &MissingVariableError{Name: v.Name}
		}
		resolved[v.Name] = ""
	}
	return resolved, nil
}

func (r *Renderer) expand(content string, vars map[string]any) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	var sb strings.Builder
	sb.Grow(len(content))

	rest := content
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		close := strings.Index(rest[open:], "}}")
		if close < 0 {
			return "", &RenderError{Expr: truncate(rest[open:], 20), Err: errors.New("unclosed placeholder")}
		}

		sb.WriteString(rest[:open])

		expr := rest[open+2 : open+close]
		value, err := r.eval(expr, vars)
		if err != nil {
			return "", err
		}
		sb.WriteString(value)

		rest = rest[open+close+2:]
	}
}

func (r *Renderer) eval(expr string, vars map[string]any) (string, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 1:
		val, ok := vars[fields[0]]
		if !ok {
			// Validation guarantees declared variables only; an unresolved
			// name here means the template bypassed validation.
			return "", &RenderError{Expr: expr, Err: fmt.Errorf("undeclared variable %q", fields[0])}
		}
		return stringify(val), nil
	case 2:
		helper, ok := helpers[fields[0]]
		if !ok {
			return "", &RenderError{Expr: expr, Err: fmt.Errorf("unknown helper %q", fields[0])}
		}
		val, ok := vars[fields[1]]
		if !ok {
			return "", &RenderError{Expr: expr, Err: fmt.Errorf("undeclared variable %q", fields[1])}
		}
		out, err := helper(r, val)
		if err != nil {
			return "", &RenderError{Expr: expr, Err: err}
		}
		return out, nil
	default:
		return "", &RenderError{Expr: expr, Err: errors.New("malformed placeholder")}
	}
}

// stringify converts a variable value into its plain textual form.
// Floats are printed without exponent and without trailing zeros so JSON
// numbers round-trip cleanly ({"amount": 150} renders as "150").
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
