// Package domain contains core concepts of the chat feed.
// This file defines Message and the connection states of a feed.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Message is a chat entry as seen by a feed subscriber.
// CreatedAt stays nil until the store has assigned its server timestamp.
type Message struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"`
	AuthorID     string     `json:"authorId"`
	AuthorName   string     `json:"authorName"`
	AuthorAvatar *string    `json:"authorAvatar,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Before reports whether m sorts strictly before other in a feed.
// Messages without a timestamp sort first.
func (m Message) Before(other Message) bool {
	switch {
	case m.CreatedAt == nil:
		return other.CreatedAt != nil
	case other.CreatedAt == nil:
		return false
	default:
		return m.CreatedAt.Before(*other.CreatedAt)
	}
}

type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateLive
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
