package auth

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/atelier-digital/atelier-backend/internal/apperr"
)

// Identity is the resolved caller: a stable UID plus the role marker the
// admin gate branches on.
type Identity struct {
	UID   string
	Email string
	Admin bool
}

// Verifier resolves a bearer token into an Identity. Errors distinguish
// an invalid token (auth kind) from a broken verifier (unavailable kind)
// so callers can tell "not logged in" apart from "auth backend is down".
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// FirebaseVerifier verifies Firebase ID tokens. Admin status comes from
// a role/admin custom claim or from the configured allow-listed emails.
type FirebaseVerifier struct {
	client      *fbauth.Client
	adminEmails map[string]bool
}

func NewFirebaseVerifier(ctx context.Context, credentialsPath string, adminEmails []string) (*FirebaseVerifier, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	allowed := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = true
	}

	return &FirebaseVerifier{client: client, adminEmails: allowed}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		if fbauth.IsIDTokenInvalid(err) || fbauth.IsIDTokenExpired(err) || fbauth.IsIDTokenRevoked(err) {
			return nil, apperr.Auth("invalid or expired token")
		}
		return nil, apperr.Unavailable("auth backend unavailable", err)
	}

	id := &Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = strings.ToLower(email)
	}
	id.Admin = v.isAdmin(token, id.Email)

	return id, nil
}

func (v *FirebaseVerifier) isAdmin(token *fbauth.Token, email string) bool {
	if role, ok := token.Claims["role"].(string); ok && role == "admin" {
		return true
	}
	if admin, ok := token.Claims["admin"].(bool); ok && admin {
		return true
	}
	return email != "" && v.adminEmails[email]
}
