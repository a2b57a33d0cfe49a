package pubsub

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeBodyBase64(t *testing.T) {
	payload := `{"resourceUpdate":{"traits":{}}}`
	body := `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte(payload)) + `","messageId":"msg-1"}}`

	dec, err := DecodeBody([]byte(body))
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if dec.Text != payload {
		t.Errorf("expected %q, got %q", payload, dec.Text)
	}
	if !dec.Base64 {
		t.Error("expected Base64=true")
	}
	if dec.MessageID != "msg-1" {
		t.Errorf("expected messageId msg-1, got %q", dec.MessageID)
	}
}

func TestDecodeBodyLiteralFallback(t *testing.T) {
	// Raw JSON is not valid base64; the data field must pass through as-is.
	payload := `{"resourceUpdate":{"traits":{}}}`
	body := `{"message":{"data":` + jsonString(payload) + `}}`

	dec, err := DecodeBody([]byte(body))
	if err != nil {
		t.Fatalf("DecodeBody: %v", err)
	}
	if dec.Text != payload {
		t.Errorf("expected literal passthrough, got %q", dec.Text)
	}
	if dec.Base64 {
		t.Error("expected Base64=false for literal fallback")
	}
}

func TestDecodeBodyErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"empty body", "", ErrMalformedRequest},
		{"not json", "not json at all", ErrMalformedRequest},
		{"json array", `[1,2,3]`, ErrMalformedRequest},
		{"json string", `"hello"`, ErrMalformedRequest},
		{"no message field", `{"subscription":"projects/p/subscriptions/s"}`, ErrMissingMessage},
		{"empty object", `{}`, ErrMissingMessage},
		{"no data field", `{"message":{"messageId":"m1"}}`, ErrMissingData},
		{"empty data field", `{"message":{"data":""}}`, ErrMissingData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBody([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// jsonString quotes s as a JSON string literal.
func jsonString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}
