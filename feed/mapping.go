package feed

import (
	"slices"

	"folio-chat/domain"

	"github.com/samber/lo"
)

// DefaultChannel is the collection the chat pane reads and writes when none is given.
const DefaultChannel = "messages"

// Document fields of a chat message.
const (
	FieldText         = "text"
	FieldAuthorID     = "authorId"
	FieldAuthorName   = "authorName"
	FieldAuthorAvatar = "authorAvatar"
	FieldCreatedAt    = "createdAt"
)

// OrderField is the field feeds are ordered on.
const OrderField = FieldCreatedAt

// ToFields builds the document written for a new message.
// createdAt is left to the store clock.
func ToFields(text string, identity domain.Identity) domain.Fields {
	var avatar any
	if identity.AvatarURL != nil {
		avatar = *identity.AvatarURL
	}
	return domain.Fields{
		FieldText:         text,
		FieldAuthorID:     identity.ID,
		FieldAuthorName:   identity.DisplayName,
		FieldAuthorAvatar: avatar,
		FieldCreatedAt:    domain.ServerTimestamp,
	}
}

func ToMessage(doc domain.Document) domain.Message {
	message := domain.Message{ID: doc.ID}
	message.Text, _ = doc.String(FieldText)
	message.AuthorID, _ = doc.String(FieldAuthorID)
	message.AuthorName, _ = doc.String(FieldAuthorName)
	if avatar, ok := doc.String(FieldAuthorAvatar); ok {
		message.AuthorAvatar = lo.ToPtr(avatar)
	}
	if createdAt, ok := doc.Time(FieldCreatedAt); ok {
		message.CreatedAt = lo.ToPtr(createdAt)
	}
	return message
}

// ToMessages maps a store snapshot, keeping it sorted on createdAt.
// The sort is stable so store order still breaks ties.
func ToMessages(docs []domain.Document) []domain.Message {
	messages := lo.Map(docs, func(doc domain.Document, _ int) domain.Message {
		return ToMessage(doc)
	})
	slices.SortStableFunc(messages, compare)
	return messages
}

func compare(a, b domain.Message) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	default:
		return 0
	}
}

func cloneMessages(messages []domain.Message) []domain.Message {
	return lo.Map(messages, func(m domain.Message, _ int) domain.Message {
		if m.AuthorAvatar != nil {
			m.AuthorAvatar = lo.ToPtr(*m.AuthorAvatar)
		}
		if m.CreatedAt != nil {
			m.CreatedAt = lo.ToPtr(*m.CreatedAt)
		}
		return m
	})
}
