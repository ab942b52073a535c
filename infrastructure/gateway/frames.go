package gateway

import (
	"folio-chat/domain"
	"folio-chat/errors"
	"folio-chat/feed"
)

// Frames sent by browsers on the feed socket.
const (
	frameSend    = "send"
	frameSignIn  = "signIn"
	frameSignOut = "signOut"
)

// Frames sent by the gateway.
const (
	frameSnapshot = "snapshot"
	frameIdentity = "identity"
	frameAck      = "ack"
	frameError    = "error"
)

type clientFrame struct {
	Type  string `json:"type"`
	Ref   string `json:"ref,omitempty"`
	Text  string `json:"text,omitempty"`
	Token string `json:"token,omitempty"`
}

type snapshotFrame struct {
	Type  string           `json:"type"`
	State string           `json:"state"`
	Items []domain.Message `json:"items"`
	Error string           `json:"error,omitempty"`
}

type identityFrame struct {
	Type     string           `json:"type"`
	Identity *domain.Identity `json:"identity"`
}

type replyFrame struct {
	Type string `json:"type"`
	Ref  string `json:"ref,omitempty"`
	Code string `json:"code,omitempty"`
}

func toSnapshotFrame(update feed.Update) snapshotFrame {
	frame := snapshotFrame{Type: frameSnapshot, State: update.State.String(), Items: update.Items}
	if frame.Items == nil {
		frame.Items = []domain.Message{}
	}
	if update.Err != nil {
		frame.Error = errors.Code(update.Err)
	}
	return frame
}

func toReplyFrame(ref string, err error) replyFrame {
	if err == nil {
		return replyFrame{Type: frameAck, Ref: ref}
	}
	return replyFrame{Type: frameError, Ref: ref, Code: errors.Code(err)}
}
