package repositories

import (
	"fmt"
	"strconv"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field values are stored as single-key typed wrappers, e.g.
// {"stringValue": "hi"} or {"timestampValue": "2026-01-02T03:04:05.000000001Z"},
// so a timestamp never comes back as a plain string.
const (
	kindNull      = "nullValue"
	kindString    = "stringValue"
	kindBoolean   = "booleanValue"
	kindInteger   = "integerValue"
	kindDouble    = "doubleValue"
	kindTimestamp = "timestampValue"

	// kindServerTimestamp only travels in insert requests, it is never stored.
	kindServerTimestamp = "serverTimestampValue"
)

// EncodeDocument converts a document into its {"id", "fields"} struct form.
func EncodeDocument(doc domain.Document) (*structpb.Struct, error) {
	fields, err := EncodeFields(doc.Fields)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":     structpb.NewStringValue(doc.ID),
		"fields": structpb.NewStructValue(fields),
	}}, nil
}

func DecodeDocument(s *structpb.Struct) (domain.Document, error) {
	if s == nil {
		return domain.Document{}, fmt.Errorf("%w: nil document", errors.ErrInvalidDocument)
	}
	id := s.GetFields()["id"].GetStringValue()
	if id == "" {
		return domain.Document{}, fmt.Errorf("%w: missing id", errors.ErrInvalidDocument)
	}
	fields, err := DecodeFields(s.GetFields()["fields"].GetStructValue())
	if err != nil {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return domain.Document{ID: id, Fields: fields}, nil
}

func EncodeFields(fields domain.Fields) (*structpb.Struct, error) {
	return encodeFields(fields, false)
}

// EncodeRequestFields is EncodeFields for insert requests, ServerTimestamp included.
func EncodeRequestFields(fields domain.Fields) (*structpb.Struct, error) {
	return encodeFields(fields, true)
}

func encodeFields(fields domain.Fields, request bool) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for name, value := range fields {
		encoded, err := encodeValue(value, request)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out.Fields[name] = encoded
	}
	return out, nil
}

func DecodeFields(s *structpb.Struct) (domain.Fields, error) {
	return decodeFields(s, false)
}

// DecodeRequestFields accepts the ServerTimestamp sentinel.
func DecodeRequestFields(s *structpb.Struct) (domain.Fields, error) {
	return decodeFields(s, true)
}

func decodeFields(s *structpb.Struct, request bool) (domain.Fields, error) {
	fields := make(domain.Fields, len(s.GetFields()))
	for name, value := range s.GetFields() {
		decoded, err := decodeValue(value, request)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = decoded
	}
	return fields, nil
}

// MarshalDocument is the binary form kept in Badger.
func MarshalDocument(doc domain.Document) ([]byte, error) {
	s, err := EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func UnmarshalDocument(b []byte) (domain.Document, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
	}
	return DecodeDocument(&s)
}

// MarshalFieldsJSON is the text form kept in SQL backends.
func MarshalFieldsJSON(fields domain.Fields) ([]byte, error) {
	s, err := EncodeFields(fields)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

func UnmarshalFieldsJSON(b []byte) (domain.Fields, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
	}
	return DecodeFields(&s)
}

func encodeValue(v any, request bool) (*structpb.Value, error) {
	switch val := v.(type) {
	case nil:
		return wrap(kindNull, structpb.NewNullValue()), nil
	case string:
		return wrap(kindString, structpb.NewStringValue(val)), nil
	case *string:
		if val == nil {
			return wrap(kindNull, structpb.NewNullValue()), nil
		}
		return wrap(kindString, structpb.NewStringValue(*val)), nil
	case bool:
		return wrap(kindBoolean, structpb.NewBoolValue(val)), nil
	case int:
		return wrap(kindInteger, structpb.NewStringValue(strconv.FormatInt(int64(val), 10))), nil
	case int64:
		return wrap(kindInteger, structpb.NewStringValue(strconv.FormatInt(val, 10))), nil
	case float64:
		return wrap(kindDouble, structpb.NewNumberValue(val)), nil
	case time.Time:
		return wrap(kindTimestamp, structpb.NewStringValue(val.UTC().Format(time.RFC3339Nano))), nil
	case domain.ServerTimestampValue:
		if request {
			return wrap(kindServerTimestamp, structpb.NewBoolValue(true)), nil
		}
		return nil, fmt.Errorf("%w: unresolved server timestamp", errors.ErrInvalidDocument)
	default:
		return nil, fmt.Errorf("%w: unsupported value of type %T", errors.ErrInvalidDocument, v)
	}
}

func decodeValue(v *structpb.Value, request bool) (any, error) {
	wrapper := v.GetStructValue().GetFields()
	if len(wrapper) != 1 {
		return nil, fmt.Errorf("%w: expected one typed value, got %d", errors.ErrInvalidDocument, len(wrapper))
	}
	for kind, inner := range wrapper {
		switch kind {
		case kindNull:
			return nil, nil
		case kindString:
			return inner.GetStringValue(), nil
		case kindBoolean:
			return inner.GetBoolValue(), nil
		case kindInteger:
			n, err := strconv.ParseInt(inner.GetStringValue(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
			}
			return n, nil
		case kindDouble:
			return inner.GetNumberValue(), nil
		case kindTimestamp:
			t, err := time.Parse(time.RFC3339Nano, inner.GetStringValue())
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
			}
			return t.UTC(), nil
		case kindServerTimestamp:
			if !request {
				return nil, fmt.Errorf("%w: unresolved server timestamp", errors.ErrInvalidDocument)
			}
			return domain.ServerTimestamp, nil
		default:
			return nil, fmt.Errorf("%w: unknown value kind %q", errors.ErrInvalidDocument, kind)
		}
	}
	return nil, nil
}

func wrap(kind string, v *structpb.Value) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{kind: v}})
}
