// Package notify implements the outbound notification path.
//
// Notifications are best-effort: state mutations always complete and persist
// before the corresponding notification is enqueued, so a crash between
// mutation and delivery leaves the core consistent. Failed sends are logged
// with their delivery id and never retried.
package notify

import (
	"github.com/maksline/lavka/internal/model"
)

// Action is a user-visible action attached to an admin-channel post
// (confirm/reject buttons, rendered by the concrete transport).
type Action struct {
	Label    string
	Callback string
}

// Transport is the chat transport collaborator. Implementations deliver
// messages; they must not retry and must not block on core state.
type Transport interface {
	// Notify sends a plain text message to a user.
	Notify(userID int64, text string) error

	// NotifyWithImage posts text plus an image reference to a chat and
	// returns a reference to the created message so it can be edited later.
	NotifyWithImage(chatID int64, imageRef, text string, actions []Action) (model.MessageRef, error)

	// UpdateMessage replaces the text of a previously sent message.
	UpdateMessage(ref model.MessageRef, text string) error
}

// Kind distinguishes queued notification types.
type Kind int

const (
	// KindNotify is a plain text message to a user.
	KindNotify Kind = iota + 1
	// KindUpdate edits a previously posted message.
	KindUpdate
)

// Notification is one queued outbound delivery.
type Notification struct {
	// DeliveryID is a UUIDv7 stamped at enqueue time for log correlation.
	DeliveryID string

	Kind   Kind
	UserID int64
	Ref    model.MessageRef
	Text   string
}
