package repository

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const cursorSeparator = "|"

// Cursor is a keyset position: the sort timestamp and id of the last row seen.
type Cursor struct {
	At string
	ID string
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool { return c.At == "" || c.ID == "" }

// EncodeCursor builds an opaque page token.
func EncodeCursor(c Cursor) string {
	if c.IsZero() {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(c.At + cursorSeparator + c.ID))
}

// DecodeCursor parses a page token produced by EncodeCursor. An empty token is the first page.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("base64: %w", err)
	}
	parts := strings.SplitN(string(b), cursorSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Cursor{}, fmt.Errorf("invalid cursor format")
	}
	return Cursor{At: parts[0], ID: parts[1]}, nil
}
