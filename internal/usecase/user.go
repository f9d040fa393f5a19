package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sirdeeq/GBV-Backend/internal/entity"
	"github.com/Sirdeeq/GBV-Backend/internal/hasher"
	"github.com/Sirdeeq/GBV-Backend/internal/repository"
	"github.com/Sirdeeq/GBV-Backend/internal/sms"
	"github.com/Sirdeeq/GBV-Backend/internal/verification"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("incorrect verification code")
)

// UserRepository is the persistence port for user records.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByEmailOrPhone(ctx context.Context, email, phone string) (*entity.User, error)
	Update(ctx context.Context, userID primitive.ObjectID, upd repository.UserUpdate) (*entity.User, error)
	SetVerificationCode(ctx context.Context, userID primitive.ObjectID, code string) error
	ResetPassword(ctx context.Context, userID primitive.ObjectID, passwordDigest string) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
	List(ctx context.Context, skip, limit int64) ([]*entity.User, error)
}

type UserUsecase struct {
	repo   UserRepository
	hasher hasher.PasswordHasher
	sender sms.Sender
	logger *zap.Logger
}

func NewUserUsecase(repo UserRepository, h hasher.PasswordHasher, sender sms.Sender, logger *zap.Logger) *UserUsecase {
	return &UserUsecase{
		repo:   repo,
		hasher: h,
		sender: sender,
		logger: logger.Named("UserUsecase"),
	}
}

// SignupInput carries the already-validated signup fields.
type SignupInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
	Organization    string
	Phone           string
	Address         string
	Age             int
}

// Signup creates a new account. The password is hashed before anything is
// persisted; the plaintext never reaches the repository.
func (u *UserUsecase) Signup(ctx context.Context, in SignupInput) (string, error) {
	if in.Password != in.ConfirmPassword {
		u.logger.Warn("Signup rejected: passwords do not match", zap.String("email", in.Email))
		return "", ErrPasswordMismatch
	}

	// Pre-check for a friendlier error; the unique index still decides the
	// race between two concurrent signups.
	if _, err := u.repo.GetByEmail(ctx, in.Email); err == nil {
		u.logger.Warn("Signup rejected: email already in use", zap.String("email", in.Email))
		return "", repository.ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return "", err
	}

	digest, err := u.hasher.Hash(ctx, in.Password)
	if err != nil {
		u.logger.Error("Failed to hash password during signup", zap.String("email", in.Email), zap.Error(err))
		return "", err
	}

	user := &entity.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Organization: in.Organization,
		Phone:        in.Phone,
		Address:      in.Address,
		Age:          in.Age,
		Role:         entity.RoleUser,
		ProfileImage: entity.DefaultProfileImage,
		Password:     digest,
	}

	userID, err := u.repo.Create(ctx, user)
	if err != nil {
		return "", err
	}
	u.logger.Info("User signed up", zap.String("userID", userID.Hex()))
	return userID.Hex(), nil
}

// Login verifies the credentials and returns the matching record.
//
// A missing account surfaces as ErrUserNotFound while a wrong password is
// ErrInvalidCredentials, so the two map to different HTTP statuses. This
// lets callers enumerate registered emails; kept to match the existing API
// contract, revisit before exposing publicly.
func (u *UserUsecase) Login(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.Password == "" {
		u.logger.Warn("Login rejected: no stored password", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if err := u.hasher.Compare(ctx, password, user.Password); err != nil {
		if errors.Is(err, hasher.ErrMismatch) {
			u.logger.Warn("Login rejected: password mismatch", zap.String("email", email))
			return nil, ErrInvalidCredentials
		}
		u.logger.Error("Password comparison failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	u.logger.Info("User logged in", zap.String("userID", user.ID.Hex()))
	return user, nil
}

// ForgotPassword issues a fresh verification code and dispatches it to the
// account's phone. The code is persisted before dispatch and is not rolled
// back if dispatch fails: an undelivered code is single-use and superseded
// by the next issuance.
func (u *UserUsecase) ForgotPassword(ctx context.Context, email, phone string) error {
	user, err := u.repo.GetByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		u.logger.Error("Failed to generate verification code", zap.String("userID", user.ID.Hex()), zap.Error(err))
		return err
	}

	if err := u.repo.SetVerificationCode(ctx, user.ID, code); err != nil {
		return err
	}

	if err := u.sender.Send(ctx, user.Phone, fmt.Sprintf("Your verification code is: %s", code)); err != nil {
		u.logger.Error("Failed to dispatch verification code", zap.String("userID", user.ID.Hex()), zap.Error(err))
		return err
	}

	u.logger.Info("Verification code sent", zap.String("userID", user.ID.Hex()))
	return nil
}

// ResetPassword consumes the verification code and installs a new password.
func (u *UserUsecase) ResetPassword(ctx context.Context, userID, code, newPassword string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return repository.ErrUserNotFound
	}

	user, err := u.repo.GetByID(ctx, oid)
	if err != nil {
		return err
	}

	if user.VerificationCode == "" || user.VerificationCode != code {
		u.logger.Warn("Password reset rejected: incorrect verification code", zap.String("userID", userID))
		return ErrInvalidCode
	}

	digest, err := u.hasher.Hash(ctx, newPassword)
	if err != nil {
		u.logger.Error("Failed to hash new password", zap.String("userID", userID), zap.Error(err))
		return err
	}

	// One write sets the digest and clears the code, so the code cannot be
	// reused.
	if err := u.repo.ResetPassword(ctx, oid, digest); err != nil {
		return err
	}
	u.logger.Info("Password reset completed", zap.String("userID", userID))
	return nil
}

// DeleteAccount permanently removes the record. No soft delete.
func (u *UserUsecase) DeleteAccount(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return repository.ErrUserNotFound
	}
	if err := u.repo.Delete(ctx, oid); err != nil {
		return err
	}
	u.logger.Info("User account deleted", zap.String("userID", userID))
	return nil
}

// UpdateInput is a partial profile update. A non-nil Password is plaintext
// and gets hashed here; everything else passes through as-is.
type UpdateInput struct {
	FullName     *string
	Email        *string
	Organization *string
	Phone        *string
	Address      *string
	Age          *int
	Role         *string
	ProfileImage *string
	Password     *string
}

// UpdateUser applies a partial update. The password is rehashed only when
// the update actually carries a new plaintext; an already-stored digest is
// never hashed again.
func (u *UserUsecase) UpdateUser(ctx context.Context, userID string, in UpdateInput) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}

	upd := repository.UserUpdate{
		FullName:     in.FullName,
		Email:        in.Email,
		Organization: in.Organization,
		Phone:        in.Phone,
		Address:      in.Address,
		Age:          in.Age,
		Role:         in.Role,
		ProfileImage: in.ProfileImage,
	}
	if in.Password != nil {
		digest, err := u.hasher.Hash(ctx, *in.Password)
		if err != nil {
			u.logger.Error("Failed to hash password during update", zap.String("userID", userID), zap.Error(err))
			return nil, err
		}
		upd.Password = &digest
	}

	user, err := u.repo.Update(ctx, oid, upd)
	if err != nil {
		return nil, err
	}
	u.logger.Info("User updated", zap.String("userID", userID))
	return user, nil
}

func (u *UserUsecase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrUserNotFound
	}
	return u.repo.GetByID(ctx, oid)
}

func (u *UserUsecase) ListUsers(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	return u.repo.List(ctx, skip, limit)
}
