package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"

	"pulgax-store/internal/apperrors"
)

// GoogleIdentity is what the store keeps from a verified Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

// GoogleVerifier checks Google sign-in credentials.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleIdentity, error)
}

// IDTokenVerifier validates ID tokens against Google's published keys for one
// OAuth client id.
type IDTokenVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, fmt.Errorf("%w: google account email is not verified", apperrors.ErrInvalidToken)
	}
	name, _ := payload.Claims["name"].(string)
	return &GoogleIdentity{Subject: payload.Subject, Email: email, Name: name}, nil
}
