// Package push provides the two push transports the notification service
// fans out through: native FCM multicast and the Expo HTTP push bridge.
package push

import "context"

// Message is the transport-independent notification content.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// MulticastResult reports the outcome of a native multicast send with
// per-token granularity.
type MulticastResult struct {
	Delivered int
	Failed    int
	// Unregistered lists tokens the transport reported as no longer
	// registered; the caller removes exactly these from their owners.
	Unregistered []string
}

// Multicaster sends one message to many native device tokens.
type Multicaster interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) (*MulticastResult, error)
}

// BridgeMessage is one entry in a push-bridge batch.
type BridgeMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// BridgeSender delivers a batch through the HTTP push bridge. The bridge
// reports only an overall outcome, no per-token granularity.
type BridgeSender interface {
	SendBatch(ctx context.Context, messages []BridgeMessage) error
}
