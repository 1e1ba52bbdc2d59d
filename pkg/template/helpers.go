package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// helperFunc is the signature of a built-in rendering helper. The set is
// closed on purpose: stored template content must never execute code.
type helperFunc func(r *Renderer, v any) (string, error)

var helpers = map[string]helperFunc{
	"formatDate":     helperFormatDate,
	"formatCurrency": helperFormatCurrency,
	"uppercase":      helperUppercase,
	"lowercase":      helperLowercase,
	"titlecase":      helperTitlecase,
}

func helperFormatDate(r *Renderer, v any) (string, error) {
	t, err := toTime(v)
	if err != nil {
		return "", err
	}
	return formatDate(t, r.locale), nil
}

func helperFormatCurrency(r *Renderer, v any) (string, error) {
	f, err := toFloat(v)
	if err != nil {
		return "", err
	}
	unit, err := currency.ParseISO(r.currency)
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", r.currency, err)
	}
	// currency.Symbol keeps the minor-unit digits appropriate for the
	// currency (two for EUR, zero for JPY).
	p := message.NewPrinter(r.locale)
	return p.Sprint(currency.Symbol(unit.Amount(f))), nil
}

func helperUppercase(_ *Renderer, v any) (string, error) {
	return strings.ToUpper(stringify(v)), nil
}

func helperLowercase(_ *Renderer, v any) (string, error) {
	return strings.ToLower(stringify(v)), nil
}

func helperTitlecase(r *Renderer, v any) (string, error) {
	return cases.Title(r.locale).String(stringify(v)), nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as date", t)
	default:
		return time.Time{}, fmt.Errorf("cannot format %T as date", v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot format %T as number", v)
	}
}

// monthNames holds localized month names for the locales the engine ships
// with. Unlisted languages fall back to English.
var monthNames = map[string][12]string{
	"it": {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
		"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
}

// formatDate renders "02 January 2006" with the month name localized for
// the renderer locale. Output depends only on the inputs.
func formatDate(t time.Time, loc language.Tag) string {
	base, _ := loc.Base()
	month := t.Month().String()
	if names, ok := monthNames[base.String()]; ok {
		month = names[t.Month()-1]
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), month, t.Year())
}
