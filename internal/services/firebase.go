package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

// Firebase bundles the Admin SDK clients the backend uses.
type Firebase struct {
	App       *firebase.App
	Auth      *auth.Client
	Messaging *messaging.Client
}

// NewFirebase initializes the Admin SDK from a service account file.
func NewFirebase(ctx context.Context, serviceAccountPath string) (*Firebase, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting auth client: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &Firebase{App: app, Auth: authClient, Messaging: msgClient}, nil
}

// MessageSender is the part of the FCM client used for topic pushes.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TopicPusher announces newly paid parcels to riders subscribed to an FCM
// topic. Other events are ignored.
type TopicPusher struct {
	sender MessageSender
	topic  string
}

func NewTopicPusher(sender MessageSender, topic string) *TopicPusher {
	return &TopicPusher{sender: sender, topic: topic}
}

func (p *TopicPusher) Publish(ctx context.Context, ev models.ParcelEvent) error {
	if ev.Type != models.EventParcelPaid {
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: "New parcel awaiting pickup",
			Body:  fmt.Sprintf("Parcel %s is paid and ready for a rider", ev.TrackingID),
		},
		Data: map[string]string{
			"type":           ev.Type,
			"parcelId":       ev.ParcelID,
			"trackingId":     ev.TrackingID,
			"notificationId": "parcel_paid_" + ev.ParcelID,
		},
		Topic:   p.topic,
		Android: androidConfig(),
		APNS:    apnsConfig(),
	}

	if _, err := p.sender.Send(ctx, message); err != nil {
		return fmt.Errorf("error sending topic message: %w", err)
	}
	return nil
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:                 "default",
			ChannelID:             "zapshift_parcels",
			Priority:              messaging.PriorityHigh,
			DefaultSound:          true,
			Color:                 "#CAEB66",
			DefaultVibrateTimings: true,
		},
	}
}

func apnsConfig() *messaging.APNSConfig {
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:          "default",
				MutableContent: true,
			},
		},
	}
}
