package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the opaque pagination state we encode/decode.
// AfterID is the last id of the previous page; ids are time-ordered, so
// "id > AfterID" resumes without repeats or gaps.
type Cursor struct {
	AfterID uint64 `json:"after_id"`
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → nil (first page).
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("invalid pagination token")
	}
	return &c, nil
}

// EncodeAfter encodes id as a token, or returns "" when id is nil (last page).
func EncodeAfter(id *uint64) (string, error) {
	if id == nil {
		return "", nil
	}
	return Encode(Cursor{AfterID: *id})
}

// DecodeAfter returns the AfterID carried by token, or nil for the first page.
func DecodeAfter(token string) (*uint64, error) {
	c, err := Decode(token)
	if err != nil || c == nil {
		return nil, err
	}
	return &c.AfterID, nil
}
