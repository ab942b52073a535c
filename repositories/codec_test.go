package repositories

import (
	"testing"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestCodec_Binary_KeepsTypes(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 4, 3, 2, 1, 123456789, time.UTC)
	doc := domain.Document{
		ID: "01J0000000000000000000000A",
		Fields: domain.Fields{
			"text":         "hi",
			"authorAvatar": nil,
			"pinned":       true,
			"likes":        int64(3),
			"score":        1.5,
			"createdAt":    at,
		},
	}

	b, err := MarshalDocument(doc)
	req.NoError(err)
	decoded, err := UnmarshalDocument(b)
	req.NoError(err)

	// Then the timestamp comes back as a time, nanoseconds included
	req.Equal(doc, decoded)
	createdAt, ok := decoded.Time("createdAt")
	req.True(ok)
	req.Equal(at, createdAt)
}

func TestCodec_JSON_NormalisesPointersAndInts(t *testing.T) {
	req := require.New(t)
	fields := domain.Fields{
		"authorAvatar": lo.ToPtr("https://example.com/a.png"),
		"missing":      (*string)(nil),
		"count":        7,
	}

	b, err := MarshalFieldsJSON(fields)
	req.NoError(err)
	decoded, err := UnmarshalFieldsJSON(b)
	req.NoError(err)

	req.Equal(domain.Fields{
		"authorAvatar": "https://example.com/a.png",
		"missing":      nil,
		"count":        int64(7),
	}, decoded)
}

func TestCodec_RejectsUnresolvedServerTimestamp(t *testing.T) {
	req := require.New(t)
	_, err := MarshalFieldsJSON(domain.Fields{"createdAt": domain.ServerTimestamp})
	req.ErrorIs(err, errors.ErrInvalidDocument)
}

func TestCodec_RejectsUnsupportedValue(t *testing.T) {
	req := require.New(t)
	_, err := MarshalFieldsJSON(domain.Fields{"nested": map[string]any{"a": 1}})
	req.ErrorIs(err, errors.ErrInvalidDocument)
}

func TestCodec_RejectsDocumentWithoutID(t *testing.T) {
	req := require.New(t)
	b, err := MarshalDocument(domain.Document{Fields: domain.Fields{"text": "x"}})
	req.NoError(err)
	_, err = UnmarshalDocument(b)
	req.ErrorIs(err, errors.ErrInvalidDocument)
}

func TestCodec_RequestFields_CarryServerTimestamp(t *testing.T) {
	req := require.New(t)
	fields := domain.Fields{"text": "hi", "createdAt": domain.ServerTimestamp}

	encoded, err := EncodeRequestFields(fields)
	req.NoError(err)
	decoded, err := DecodeRequestFields(encoded)
	req.NoError(err)
	req.Equal(fields, decoded)

	// And a stored document can never hold the sentinel
	_, err = DecodeFields(encoded)
	req.ErrorIs(err, errors.ErrInvalidDocument)
}
