package docstore

import (
	"fmt"

	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/repositories"

	"google.golang.org/protobuf/types/known/structpb"
)

// Insert request: {"collection": string, "fields": {...}}, response: {"id": string}.
// Subscribe request: {"collection": string, "orderField": string}.
// Snapshot message: {"documents": [{"id": string, "fields": {...}}, ...]}.

func NewInsertRequest(collection string, fields domain.Fields) (*structpb.Struct, error) {
	encoded, err := repositories.EncodeRequestFields(fields)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"collection": structpb.NewStringValue(collection),
		"fields":     structpb.NewStructValue(encoded),
	}}, nil
}

func ParseInsertRequest(s *structpb.Struct) (string, domain.Fields, error) {
	collection := s.GetFields()["collection"].GetStringValue()
	fields, err := repositories.DecodeRequestFields(s.GetFields()["fields"].GetStructValue())
	if err != nil {
		return "", nil, err
	}
	return collection, fields, nil
}

func NewInsertResponse(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

func ParseInsertResponse(s *structpb.Struct) (string, error) {
	id := s.GetFields()["id"].GetStringValue()
	if id == "" {
		return "", fmt.Errorf("%w: insert answered without id", errors.ErrInvalidDocument)
	}
	return id, nil
}

func NewSubscribeRequest(collection, orderField string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"collection": structpb.NewStringValue(collection),
		"orderField": structpb.NewStringValue(orderField),
	}}
}

func ParseSubscribeRequest(s *structpb.Struct) (string, string) {
	return s.GetFields()["collection"].GetStringValue(), s.GetFields()["orderField"].GetStringValue()
}

func NewSnapshot(docs []domain.Document) (*structpb.Struct, error) {
	values := make([]*structpb.Value, 0, len(docs))
	for _, doc := range docs {
		encoded, err := repositories.EncodeDocument(doc)
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(encoded))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"documents": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}, nil
}

func ParseSnapshot(s *structpb.Struct) ([]domain.Document, error) {
	values := s.GetFields()["documents"].GetListValue().GetValues()
	docs := make([]domain.Document, 0, len(values))
	for _, value := range values {
		doc, err := repositories.DecodeDocument(value.GetStructValue())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
