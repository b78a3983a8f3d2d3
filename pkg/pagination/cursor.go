// Package pagination implements relay-style cursor pagination over database/sql.
package pagination

import (
	"encoding/base64"
	"encoding/json"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

// cursorPayload is the decoded form of an opaque cursor. The pointer field
// distinguishes a missing "id" key from a literal zero.
type cursorPayload struct {
	ID *int64 `json:"id"`
}

// EncodeCursor encodes a row key into an opaque cursor string.
func EncodeCursor(id int64) string {
	payload, _ := json.Marshal(cursorPayload{ID: &id})
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeCursor decodes an opaque cursor back into a row key. Any malformed
// input, wrong base64, wrong JSON, or a missing id key, is rejected with an
// invalid cursor error.
func DecodeCursor(cursor string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidCursor, "invalid cursor")
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, apperr.New(apperr.KindInvalidCursor, "invalid cursor")
	}
	if payload.ID == nil {
		return 0, apperr.New(apperr.KindInvalidCursor, "invalid cursor")
	}

	return *payload.ID, nil
}
