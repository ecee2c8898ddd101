package text

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ErrMalformedPayload is returned when a reply body is not valid JSON.
var ErrMalformedPayload = errors.New("malformed reply payload")

// replyFields are tried in order; the first present, non-null one wins.
var replyFields = []string{"reply", "message", "text"}

// Extract returns the reply carried by a JSON payload, falling back to the
// whole decoded payload when none of the known reply fields is present.
func Extract(payload []byte) (any, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedPayload
	}
	document := gjson.ParseBytes(payload)
	if document.IsObject() {
		for _, field := range replyFields {
			result := document.Get(field)
			if result.Exists() && result.Type != gjson.Null {
				return result.Value(), nil
			}
		}
	}
	return document.Value(), nil
}
