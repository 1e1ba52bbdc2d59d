package template

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// seedFile is the YAML shape consumed by Load. Priority is carried as its
// canonical string form and normalized through notify.ParsePriority.
type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
}

type seedTemplate struct {
	Template `yaml:",inline"`
	Priority string `yaml:"priority"`
}

// Load parses template definitions from a YAML document, typically a seed
// file maintained alongside migrations. Every template is validated; the
// first invalid definition aborts the load.
func Load(r io.Reader) ([]Template, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse template seed file: %w", err)
	}

	out := make([]Template, 0, len(file.Templates))
	for _, seed := range file.Templates {
		tmpl := seed.Template
		tmpl.Priority = notify.ParsePriority(seed.Priority)
		if err := tmpl.Validate(); err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// Seed creates every template that does not exist yet. Existing templates
// are left untouched so operator edits survive restarts.
func Seed(ctx context.Context, store Store, templates []Template) error {
	for _, tmpl := range templates {
		if err := store.Create(ctx, tmpl); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("failed to seed template %q: %w", tmpl.Code, err)
		}
	}
	return nil
}
