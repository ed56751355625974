package httpx

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

type payload struct {
	Reason string `json:"reason"`
}

func TestDecodeJSON(t *testing.T) {
	var p payload
	if err := DecodeJSON(strings.NewReader(`{"reason":"travel"}`), &p); err != nil || p.Reason != "travel" {
		t.Fatalf("expected decoded reason, got %+v err=%v", p, err)
	}
	if err := DecodeJSON(strings.NewReader(""), &p); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if err := DecodeJSON(strings.NewReader(`{"reason":"a"}{}`), &p); !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
	if err := DecodeJSON(strings.NewReader(`{"unknown":1}`), &p); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
	big := `{"reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	if err := DecodeJSON(strings.NewReader(big), &p); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var p payload
	ok, err := DecodeOptionalJSON(strings.NewReader(""), &p)
	if ok || err != nil {
		t.Fatalf("expected empty body to be skipped, got ok=%v err=%v", ok, err)
	}
	ok, err = DecodeOptionalJSON(strings.NewReader(`{"reason":"sick"}`), &p)
	if !ok || err != nil || p.Reason != "sick" {
		t.Fatalf("expected decoded body, got ok=%v err=%v p=%+v", ok, err, p)
	}
	if _, err := DecodeOptionalJSON(strings.NewReader(`{`), &p); err == nil {
		t.Fatalf("expected malformed body to fail")
	}
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(url.Values{}, 20, 100)
	if err != nil || page.Limit != 20 || page.Offset != 0 {
		t.Fatalf("unexpected defaults %+v err=%v", page, err)
	}
	page, err = ParsePage(url.Values{"limit": {"500"}, "offset": {"40"}}, 20, 100)
	if err != nil || page.Limit != 100 || page.Offset != 40 {
		t.Fatalf("expected clamped limit, got %+v err=%v", page, err)
	}
	if _, err := ParsePage(url.Values{"limit": {"0"}}, 20, 100); !errors.Is(err, ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if _, err := ParsePage(url.Values{"offset": {"-1"}}, 20, 100); !errors.Is(err, ErrInvalidOffset) {
		t.Fatalf("expected ErrInvalidOffset, got %v", err)
	}
}
