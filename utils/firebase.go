package utils

import (
	"context"
	"fmt"

	"fastaid/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMClient is set by FirebaseInit when push notifications are enabled.
var FCMClient *messaging.Client

// FirebaseInit builds the messaging client from the configured service account.
func FirebaseInit(ctx context.Context) (*messaging.Client, error) {
	credentials := config.AppConfig.FirebaseCredentialsFile
	if credentials == "" {
		return nil, fmt.Errorf("firebase: FIREBASE_CREDENTIALS_FILE is not set")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentials))
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}

	FCMClient = client
	GetLogger().Info("Firebase messaging ready")
	return client, nil
}
