package annex

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The annex encoder is not consistent about JSON types: numeric fields
// arrive as numbers or as strings, sometimes with thousands separators.
// These flex types absorb either encoding instead of failing the decode.

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = ""
		return nil
	}
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		var v string
		if err := jsonUnquote(raw, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	*s = flexString(raw)
	return nil
}

// ptr returns nil for empty values so "missing" stays distinguishable.
func (s flexString) ptr() *string {
	if s == "" {
		return nil
	}
	v := string(s)
	return &v
}

type flexDecimal struct {
	decimal.Decimal
}

func (d *flexDecimal) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(b), `"`))
	if raw == "" || raw == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := decimal.NewFromString(raw)
	if err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = v
	return nil
}

type flexInt struct {
	value *int
}

func (i *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(b), `"`))
	if raw == "" || raw == "null" {
		i.value = nil
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		i.value = nil
		return nil
	}
	i.value = &v
	return nil
}

var annexDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
}

// parseDate accepts the date spellings seen in annex payloads; slashes are
// normalized to dashes first. Unparseable values become nil, not errors.
func parseDate(s flexString) *time.Time {
	raw := strings.ReplaceAll(string(s), "/", "-")
	if raw == "" {
		return nil
	}
	for _, layout := range annexDateLayouts {
		if len(raw) < len(layout) {
			continue
		}
		if t, err := time.Parse(layout, raw[:len(layout)]); err == nil {
			return &t
		}
	}
	return nil
}

func jsonUnquote(raw string, out *string) error {
	v, err := strconv.Unquote(raw)
	if err != nil {
		return err
	}
	*out = v
	return nil
}
