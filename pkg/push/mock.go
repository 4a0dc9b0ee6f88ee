package push

import (
	"context"
	"fmt"
)

// MockMulticaster simulates the native transport for local development
type MockMulticaster struct {
	Name string
}

// NewMockMulticaster creates a new MockMulticaster
func NewMockMulticaster(name string) *MockMulticaster {
	return &MockMulticaster{Name: name}
}

// SendMulticast simulates a fully successful multicast send
func (m *MockMulticaster) SendMulticast(ctx context.Context, tokens []string, msg Message) (*MulticastResult, error) {
	fmt.Printf("[%s Mock Transport] Simulating multicast to %d tokens: %s\n", m.Name, len(tokens), msg.Title)
	return &MulticastResult{Delivered: len(tokens)}, nil
}

// MockBridge simulates the push bridge for local development
type MockBridge struct {
	Name string
}

// NewMockBridge creates a new MockBridge
func NewMockBridge(name string) *MockBridge {
	return &MockBridge{Name: name}
}

// SendBatch simulates a successful bridge batch
func (m *MockBridge) SendBatch(ctx context.Context, messages []BridgeMessage) error {
	fmt.Printf("[%s Mock Bridge] Simulating batch of %d messages\n", m.Name, len(messages))
	return nil
}
