package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	token := EncodeCursor("doc-42", ts)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, "doc-42", cursor.LastID)
	assert.True(t, ts.Equal(cursor.Timestamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_EmptyToken(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	invalid := []string{
		"not-base64!!!",
		"aGVsbG8=",                 // no separator
		"fGhlbGxv",                 // empty ID
		"ZG9jLTF8bm90LWEtdGltZQ==", // bad timestamp
	}

	for _, token := range invalid {
		cursor, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, "token: %s", token)
		assert.Nil(t, cursor)
	}
}
