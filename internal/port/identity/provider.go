// Package identity defines the port for the hosted identity provider.
package identity

import (
	"context"

	"github.com/Strob0t/CogniChat/internal/domain/user"
)

// Provider signs users up, in and out. Failures reported by the provider
// wrap domain.ErrIdentity and carry the provider's own message.
type Provider interface {
	SignUp(ctx context.Context, req user.SignUpRequest) (*user.Credentials, error)
	SignIn(ctx context.Context, req user.SignInRequest) (*user.Credentials, error)
	SignOut(ctx context.Context, accessToken string) error
	Health(ctx context.Context) error
}
