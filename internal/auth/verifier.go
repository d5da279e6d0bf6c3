package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gestor-crm/gestor/internal/shared"
)

// Credentials is what an operator submits to sign in or register.
type Credentials struct {
	Name  string
	Email string `validate:"required,email"`
	Proof string `validate:"required"`
}

// Profile is the verified subject returned by a Verifier.
type Profile struct {
	Name   string
	Email  string
	Avatar string
}

// Verifier checks credentials. Verify blocks until the check settles or ctx ends.
type Verifier interface {
	Verify(ctx context.Context, creds Credentials) (Profile, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, creds Credentials) (Profile, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, creds Credentials) (Profile, error) {
	return f(ctx, creds)
}

// DefaultOperatorName is used when a login carries no display name.
const DefaultOperatorName = "Administrator"

// MockVerifier stands in for an identity provider: after Delay it accepts any
// well-formed credentials.
type MockVerifier struct {
	Delay    time.Duration
	validate *validator.Validate
}

// NewMockVerifier returns a MockVerifier waiting delay before answering.
func NewMockVerifier(delay time.Duration) *MockVerifier {
	return &MockVerifier{Delay: delay, validate: validator.New()}
}

// Verify implements Verifier.
func (v *MockVerifier) Verify(ctx context.Context, creds Credentials) (Profile, error) {
	if v.Delay > 0 {
		timer := time.NewTimer(v.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Profile{}, ctx.Err()
		case <-timer.C:
		}
	}
	validate := v.validate
	if validate == nil {
		validate = validator.New()
	}
	if err := validate.Struct(creds); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	name := strings.TrimSpace(creds.Name)
	if name == "" {
		name = DefaultOperatorName
	}
	return Profile{Name: name, Email: strings.TrimSpace(creds.Email)}, nil
}
