package httpx

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
)

type decodePayload struct {
	OriginalURL string `json:"originalUrl"`
	CustomCode  string `json:"customCode,omitempty"`
}

func TestDecodeJSON(t *testing.T) {
	t.Run("decodes valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(
			`{"originalUrl":"https://example.com","customCode":"abc"}`))

		got, err := DecodeJSON[decodePayload](req)
		if err != nil {
			t.Fatalf("DecodeJSON() unexpected error: %v", err)
		}
		if got.OriginalURL != "https://example.com" {
			t.Errorf("OriginalURL = %q", got.OriginalURL)
		}
		if got.CustomCode != "abc" {
			t.Errorf("CustomCode = %q", got.CustomCode)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		_, err := DecodeJSON[decodePayload](req)
		if err == nil {
			t.Fatal("expected error for empty body")
		}
		if err.Error() != "request body is empty" {
			t.Errorf("error = %q", err.Error())
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"originalUrl":`))

		if _, err := DecodeJSON[decodePayload](req); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(
			`{"originalUrl":"https://example.com","bogus":true}`))

		if _, err := DecodeJSON[decodePayload](req); err == nil {
			t.Fatal("expected error for unknown field")
		}
	})

	t.Run("rejects wrong field type", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"originalUrl":42}`))

		_, err := DecodeJSON[decodePayload](req)
		if err == nil {
			t.Fatal("expected error for wrong type")
		}
		if !strings.Contains(err.Error(), "originalUrl") {
			t.Errorf("error should name the field, got %q", err.Error())
		}
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(
			`{"originalUrl":"https://a.com"}{"originalUrl":"https://b.com"}`))

		if _, err := DecodeJSON[decodePayload](req); err == nil {
			t.Fatal("expected error for multiple JSON objects")
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		huge := bytes.Repeat([]byte("a"), MaxRequestBodySize+1)
		body := append([]byte(`{"originalUrl":"`), huge...)
		body = append(body, []byte(`"}`)...)
		req := httptest.NewRequest("POST", "/", bytes.NewReader(body))

		if _, err := DecodeJSON[decodePayload](req); err == nil {
			t.Fatal("expected error for oversized body")
		}
	})
}
