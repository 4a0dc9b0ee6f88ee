package push

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Compile-time check to ensure FCMClient implements Multicaster
var _ Multicaster = (*FCMClient)(nil)

// FCMClient sends native multicast pushes through Firebase Cloud Messaging
type FCMClient struct {
	messagingClient *messaging.Client
}

// NewFCMClient creates a new FCM client using the provided credentials file
func NewFCMClient(ctx context.Context, credentialsFile string) (*FCMClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMClient{messagingClient: messagingClient}, nil
}

// SendMulticast sends one message to the given tokens and reports per-token
// outcomes. Tokens FCM flags as unregistered are collected so the caller
// can prune them.
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, msg Message) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return &MulticastResult{}, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	result := &MulticastResult{
		Delivered: response.SuccessCount,
		Failed:    response.FailureCount,
	}
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) {
			result.Unregistered = append(result.Unregistered, tokens[i])
		}
	}

	log.Printf("[FCM] Multicast sent: %d success, %d failures, %d unregistered",
		result.Delivered, result.Failed, len(result.Unregistered))
	return result, nil
}
