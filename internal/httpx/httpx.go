package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

var (
	ErrEmptyBody     = errors.New("request body is empty")
	ErrTrailingData  = errors.New("body must contain a single JSON object")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidOffset = errors.New("invalid offset")
)

// DecodeJSON decodes exactly one JSON object into v, rejecting unknown fields.
func DecodeJSON(body io.Reader, v any) error {
	err := decode(body, v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
// It reports false when there was nothing to decode.
func DecodeOptionalJSON(body io.Reader, v any) (bool, error) {
	if body == nil {
		return false, nil
	}
	err := decode(body, v)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	return err == nil, err
}

func decode(body io.Reader, v any) error {
	if body == nil {
		return io.EOF
	}
	limited := &io.LimitedReader{R: body, N: MaxBodyBytes + 1}
	dec := json.NewDecoder(limited)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if limited.N <= 0 {
			return ErrBodyTooLarge
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if limited.N <= 0 {
			return ErrBodyTooLarge
		}
		return ErrTrailingData
	}
	return nil
}

// ValidationDetails maps each failing field to the rule it broke, with the
// rule parameter when there is one ("oneof=15 30").
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		rule := err.Tag()
		if p := err.Param(); p != "" {
			rule += "=" + p
		}
		details[err.Field()] = rule
	}
	return details
}

type Page struct {
	Limit  int64
	Offset int64
}

// ParsePage reads limit and offset query parameters. A limit above maxLimit
// is clamped rather than rejected.
func ParsePage(values url.Values, defaultLimit, maxLimit int64) (Page, error) {
	page := Page{Limit: defaultLimit}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return Page{}, ErrInvalidLimit
		}
		page.Limit = min(parsed, maxLimit)
	}

	if raw := strings.TrimSpace(values.Get("offset")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return Page{}, ErrInvalidOffset
		}
		page.Offset = parsed
	}
	return page, nil
}
