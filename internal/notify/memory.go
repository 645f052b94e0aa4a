package notify

import (
	"log/slog"
	"sync"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// MemoryTransport records every delivery in memory. It backs tests and any
// deployment that runs without a real chat transport attached.
type MemoryTransport struct {
	mu        sync.Mutex
	nextMsgID int64
	failing   bool
	failures  int

	sent    []SentMessage
	posts   []ChannelPost
	updates []MessageUpdate
}

// SentMessage is a recorded Notify delivery.
type SentMessage struct {
	UserID int64
	Text   string
}

// ChannelPost is a recorded NotifyWithImage delivery.
type ChannelPost struct {
	ChatID   int64
	ImageRef string
	Text     string
	Actions  []Action
	Ref      model.MessageRef
}

// MessageUpdate is a recorded UpdateMessage delivery.
type MessageUpdate struct {
	Ref  model.MessageRef
	Text string
}

// NewMemoryTransport creates an empty recording transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

// SetFailing makes every subsequent delivery fail with TRANSPORT_FAILURE.
func (t *MemoryTransport) SetFailing(failing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing = failing
}

// Notify implements Transport.
func (t *MemoryTransport) Notify(userID int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		t.failures++
		return fault.New(fault.CodeTransportFailure, "transport unavailable")
	}
	t.sent = append(t.sent, SentMessage{UserID: userID, Text: text})
	return nil
}

// NotifyWithImage implements Transport.
func (t *MemoryTransport) NotifyWithImage(chatID int64, imageRef, text string, actions []Action) (model.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		t.failures++
		return model.MessageRef{}, fault.New(fault.CodeTransportFailure, "transport unavailable")
	}
	t.nextMsgID++
	ref := model.MessageRef{ChatID: chatID, MessageID: t.nextMsgID}
	t.posts = append(t.posts, ChannelPost{
		ChatID:   chatID,
		ImageRef: imageRef,
		Text:     text,
		Actions:  append([]Action(nil), actions...),
		Ref:      ref,
	})
	return ref, nil
}

// UpdateMessage implements Transport.
func (t *MemoryTransport) UpdateMessage(ref model.MessageRef, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing {
		t.failures++
		return fault.New(fault.CodeTransportFailure, "transport unavailable")
	}
	t.updates = append(t.updates, MessageUpdate{Ref: ref, Text: text})
	return nil
}

// Failures returns the number of deliveries rejected while failing.
func (t *MemoryTransport) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// Sent returns a copy of recorded Notify deliveries.
func (t *MemoryTransport) Sent() []SentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentMessage(nil), t.sent...)
}

// Posts returns a copy of recorded channel posts.
func (t *MemoryTransport) Posts() []ChannelPost {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ChannelPost(nil), t.posts...)
}

// Updates returns a copy of recorded message edits.
func (t *MemoryTransport) Updates() []MessageUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]MessageUpdate(nil), t.updates...)
}

// LogTransport writes every delivery to the structured log and succeeds.
// Used by CLI-only deployments where no chat transport is wired up.
type LogTransport struct {
	mu        sync.Mutex
	nextMsgID int64
}

// NewLogTransport creates a LogTransport.
func NewLogTransport() *LogTransport {
	return &LogTransport{}
}

// Notify implements Transport.
func (t *LogTransport) Notify(userID int64, text string) error {
	slog.Info("outbound notification", "user_id", userID, "text", text)
	return nil
}

// NotifyWithImage implements Transport.
func (t *LogTransport) NotifyWithImage(chatID int64, imageRef, text string, actions []Action) (model.MessageRef, error) {
	t.mu.Lock()
	t.nextMsgID++
	ref := model.MessageRef{ChatID: chatID, MessageID: t.nextMsgID}
	t.mu.Unlock()
	slog.Info("outbound channel post", "chat_id", chatID, "image_ref", imageRef, "text", text)
	return ref, nil
}

// UpdateMessage implements Transport.
func (t *LogTransport) UpdateMessage(ref model.MessageRef, text string) error {
	slog.Info("outbound message update", "chat_id", ref.ChatID, "message_id", ref.MessageID, "text", text)
	return nil
}
