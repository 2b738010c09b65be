// README: Token verification: Firebase Admin SDK in deployments, a dev verifier for local runs.
package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseToken is what the auth middleware needs from a verified ID token.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw ID token.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier builds a verifier on the Admin SDK. credentialsFile may
// be empty to fall back to application-default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase: project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: tok.UID, Claims: tok.Claims}, nil
}

// DevTokenPrefix marks tokens accepted by DevVerifier.
const DevTokenPrefix = "dev:"

var ErrInvalidDevToken = errors.New("dev token must look like dev:<uid>")

// DevVerifier trusts "dev:<uid>" tokens without any signature. It exists for
// local runs with no Firebase project and must never face the internet.
type DevVerifier struct{}

func (DevVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	uid, ok := strings.CutPrefix(idToken, DevTokenPrefix)
	uid = strings.TrimSpace(uid)
	if !ok || uid == "" {
		return nil, ErrInvalidDevToken
	}
	return &FirebaseToken{UID: uid, Claims: map[string]interface{}{}}, nil
}
