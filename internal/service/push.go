package service

import (
	"context"
	"fmt"

	"gearshare-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const firebaseService = "firebase"

type firebasePushService struct {
	client *messaging.Client
}

// NewPushService connects to Firebase Cloud Messaging. Without a credentials file it
// returns a sender that only logs.
func NewPushService(ctx context.Context, credentialsFile string) (PushService, error) {
	if credentialsFile == "" {
		return logPushService{}, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &firebasePushService{client: client}, nil
}

func (s *firebasePushService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	logger.ExternalServiceCall(firebaseService, "messaging.send", "title", title)
	_, err := s.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	logger.ExternalServiceResult(firebaseService, "messaging.send", err, "title", title)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}

type logPushService struct{}

func (logPushService) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	logger.Debug("Push delivery disabled", "title", title)
	return nil
}
