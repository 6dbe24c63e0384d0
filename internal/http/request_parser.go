package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kitchenledger/internal/core"
	"kitchenledger/internal/services"
)

// maxBodyBytes bounds request bodies; the largest form is a transaction.
const maxBodyBytes = 64 << 10

// RequestBodyParser reads a JSON object or a form-encoded body. The page
// script posts JSON; plain HTML forms and curl post forms.
type RequestBodyParser struct {
	jsonData map[string]any
	formData url.Values
	err      error
}

// NewRequestBodyParser reads and parses the body of r once.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		p.err = err
		return p
	}

	trimmed := strings.TrimSpace(string(body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(body, &p.jsonData)
	default:
		p.formData, p.err = url.ParseQuery(trimmed)
	}
	return p
}

// Err wraps any read or decode failure as a ValidationError.
func (p *RequestBodyParser) Err() error {
	if p.err == nil {
		return nil
	}
	return &core.ValidationError{Msg: "malformed request body", Err: p.err}
}

// Get returns the first present key, sanitized.
func (p *RequestBodyParser) Get(keys ...string) string {
	for _, key := range keys {
		if p.jsonData != nil {
			if val, ok := p.jsonData[key]; ok && val != nil {
				return sanitizeInput(stringValue(val))
			}
			continue
		}
		if p.formData != nil && p.formData.Has(key) {
			return sanitizeInput(p.formData.Get(key))
		}
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// DraftInput collects the transaction form. Expenses name their category
// under "category", revenue their platform under "source"; both also
// accept the wire name "category_source".
func (p *RequestBodyParser) DraftInput() core.DraftInput {
	return core.DraftInput{
		Kind:           p.Get("type", "kind"),
		Description:    p.Get("description"),
		CategorySource: p.Get("category_source", "category", "source"),
		Amount:         p.Get("amount"),
		OrderCount:     p.Get("order_count", "orders"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// ParseTableFilter reads the q, type and sort query parameters.
func ParseTableFilter(query url.Values) (services.Filter, error) {
	return services.ParseFilter(query.Get("q"), query.Get("type"), query.Get("sort"))
}

// sanitizeInput removes control characters except tab and newlines, and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
