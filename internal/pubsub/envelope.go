// Package pubsub decodes Pub/Sub push delivery envelopes into the event
// text they carry.
package pubsub

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Classified envelope failures. The HTTP layer maps each to a 400 response.
var (
	ErrMalformedRequest = errors.New("request body is not a JSON object")
	ErrMissingMessage   = errors.New("envelope has no message field")
	ErrMissingData      = errors.New("message has no data field")
)

// PushMessage is the message portion of a Pub/Sub push delivery. Only Data
// is consumed; the rest is carried for logging.
type PushMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// PushEnvelope is the top-level JSON body of a push delivery.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription,omitempty"`
}

// Decoded is the result of unwrapping an envelope.
type Decoded struct {
	Text      string // UTF-8 event payload
	MessageID string
	// Base64 reports whether Text came from a successful base64 decode of
	// the data field (false means the literal fallback was taken).
	Base64 bool
}

// DecodeBody unwraps a push delivery body into its event text. The data
// field is tried as standard base64 first; if that fails it is passed
// through as a literal string. The fallback is a supported input shape,
// not an error.
func DecodeBody(body []byte) (*Decoded, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if env.Message == nil {
		return nil, ErrMissingMessage
	}
	if env.Message.Data == "" {
		return nil, ErrMissingData
	}

	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return &Decoded{
			Text:      env.Message.Data,
			MessageID: env.Message.MessageID,
		}, nil
	}
	return &Decoded{
		Text:      string(raw),
		MessageID: env.Message.MessageID,
		Base64:    true,
	}, nil
}
