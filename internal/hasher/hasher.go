package hasher

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatch is returned by Compare when the plaintext does not match
	// the digest, or when no digest is stored at all.
	ErrMismatch = errors.New("password does not match")
	// ErrInvalidDigest is returned when the stored value is not a digest
	// this hasher could have produced.
	ErrInvalidDigest = errors.New("invalid password digest")
)

// PasswordHasher is the one-way transform for secrets at rest. An interface
// so the domain does not care about the algorithm.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, digest string) error
}

// BcryptHasher hashes with bcrypt. Each call salts freshly, so hashing the
// same plaintext twice yields different digests.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Compare(ctx context.Context, password, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if digest == "" {
		return ErrMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
}
