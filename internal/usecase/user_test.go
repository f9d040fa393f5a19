package usecase

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/Sirdeeq/GBV-Backend/internal/entity"
	"github.com/Sirdeeq/GBV-Backend/internal/hasher"
	"github.com/Sirdeeq/GBV-Backend/internal/repository"
	"github.com/Sirdeeq/GBV-Backend/internal/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}
func (m *MockUserRepository) GetByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*entity.User, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) Update(ctx context.Context, userID primitive.ObjectID, upd repository.UserUpdate) (*entity.User, error) {
	args := m.Called(ctx, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) SetVerificationCode(ctx context.Context, userID primitive.ObjectID, code string) error {
	args := m.Called(ctx, userID, code)
	return args.Error(0)
}
func (m *MockUserRepository) ResetPassword(ctx context.Context, userID primitive.ObjectID, passwordDigest string) error {
	args := m.Called(ctx, userID, passwordDigest)
	return args.Error(0)
}
func (m *MockUserRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
func (m *MockUserRepository) List(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

type MockSMSSender struct{ mock.Mock }

func (m *MockSMSSender) Send(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

func newTestUsecase(repo *MockUserRepository, sender *MockSMSSender) *UserUsecase {
	return NewUserUsecase(repo, hasher.NewBcryptHasher(bcrypt.MinCost), sender, zap.NewNop())
}

func validSignup() SignupInput {
	return SignupInput{
		FullName:        "Jane Doe",
		Email:           "a@x.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Organization:    "Acme",
		Phone:           "+15551234567",
		Address:         "1 Main St",
		Age:             30,
	}
}

func TestSignupPasswordMismatchRejectedBeforePersist(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	in := validSignup()
	in.ConfirmPassword = "different"

	_, err := uc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignupDuplicateEmailRejected(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(&entity.User{Email: "a@x.com"}, nil)

	_, err := uc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignupHashesPasswordAndDefaultsFields(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrUserNotFound)

	var created *entity.User
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*entity.User) }).
		Return(primitive.NewObjectID(), nil)

	userID, err := uc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.NotEmpty(t, userID)

	require.NotNil(t, created)
	assert.NotEqual(t, "secret1", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret1")))
	assert.Equal(t, entity.RoleUser, created.Role)
	assert.Equal(t, entity.DefaultProfileImage, created.ProfileImage)
	assert.Empty(t, created.VerificationCode)
}

func TestSignupLosingRaceSurfacesDuplicateEmail(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	// Pre-check sees nothing, but the unique index rejects the insert.
	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(nil, repository.ErrUserNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(primitive.NilObjectID, repository.ErrDuplicateEmail)

	_, err := uc.Signup(context.Background(), validSignup())
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(digest)
}

func TestLoginSuccess(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	stored := &entity.User{
		ID:       primitive.NewObjectID(),
		FullName: "Jane Doe",
		Email:    "a@x.com",
		Password: hashed(t, "secret1"),
	}
	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(stored, nil)

	user, err := uc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, user.ID)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	repo.On("GetByEmail", mock.Anything, "nobody@x.com").Return(nil, repository.ErrUserNotFound)

	_, err := uc.Login(context.Background(), "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	stored := &entity.User{ID: primitive.NewObjectID(), Email: "a@x.com", Password: hashed(t, "secret1")}
	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(stored, nil)

	_, err := uc.Login(context.Background(), "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginNoStoredPassword(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	stored := &entity.User{ID: primitive.NewObjectID(), Email: "a@x.com"}
	repo.On("GetByEmail", mock.Anything, "a@x.com").Return(stored, nil)

	_, err := uc.Login(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestForgotPasswordStoresCodeAndDispatchesSMS(t *testing.T) {
	repo := new(MockUserRepository)
	sender := new(MockSMSSender)
	uc := newTestUsecase(repo, sender)

	user := &entity.User{ID: primitive.NewObjectID(), Email: "a@x.com", Phone: "+15551234567"}
	repo.On("GetByEmailOrPhone", mock.Anything, "a@x.com", "").Return(user, nil)

	var storedCode string
	repo.On("SetVerificationCode", mock.Anything, user.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { storedCode = args.String(2) }).
		Return(nil)
	sender.On("Send", mock.Anything, "+15551234567", mock.AnythingOfType("string")).Return(nil)

	err := uc.ForgotPassword(context.Background(), "a@x.com", "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), storedCode)
	sender.AssertCalled(t, "Send", mock.Anything, "+15551234567",
		fmt.Sprintf("Your verification code is: %s", storedCode))
}

func TestForgotPasswordUnknownAccount(t *testing.T) {
	repo := new(MockUserRepository)
	sender := new(MockSMSSender)
	uc := newTestUsecase(repo, sender)

	repo.On("GetByEmailOrPhone", mock.Anything, "nobody@x.com", "").Return(nil, repository.ErrUserNotFound)

	err := uc.ForgotPassword(context.Background(), "nobody@x.com", "")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestForgotPasswordDeliveryFailureKeepsStoredCode(t *testing.T) {
	repo := new(MockUserRepository)
	sender := new(MockSMSSender)
	uc := newTestUsecase(repo, sender)

	user := &entity.User{ID: primitive.NewObjectID(), Phone: "+15551234567"}
	repo.On("GetByEmailOrPhone", mock.Anything, "", "+15551234567").Return(user, nil)
	repo.On("SetVerificationCode", mock.Anything, user.ID, mock.AnythingOfType("string")).Return(nil)
	sender.On("Send", mock.Anything, "+15551234567", mock.Anything).Return(sms.ErrDelivery)

	err := uc.ForgotPassword(context.Background(), "", "+15551234567")
	assert.ErrorIs(t, err, sms.ErrDelivery)
	// The code was persisted before dispatch; no rollback on failure.
	repo.AssertCalled(t, "SetVerificationCode", mock.Anything, user.ID, mock.AnythingOfType("string"))
}

func TestResetPasswordWithCorrectCode(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	stored := &entity.User{ID: userID, VerificationCode: "123456", Password: hashed(t, "oldpass1")}
	repo.On("GetByID", mock.Anything, userID).Return(stored, nil)

	var newDigest string
	repo.On("ResetPassword", mock.Anything, userID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { newDigest = args.String(2) }).
		Return(nil)

	err := uc.ResetPassword(context.Background(), userID.Hex(), "123456", "newpass1")
	require.NoError(t, err)

	assert.NotEqual(t, "newpass1", newDigest)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(newDigest), []byte("newpass1")))
}

func TestResetPasswordWrongCode(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	stored := &entity.User{ID: userID, VerificationCode: "123456"}
	repo.On("GetByID", mock.Anything, userID).Return(stored, nil)

	err := uc.ResetPassword(context.Background(), userID.Hex(), "000000", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidCode)
	repo.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPasswordCodeAlreadyConsumed(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	// A successful reset clears the code, so a replay sees an empty one.
	userID := primitive.NewObjectID()
	stored := &entity.User{ID: userID}
	repo.On("GetByID", mock.Anything, userID).Return(stored, nil)

	err := uc.ResetPassword(context.Background(), userID.Hex(), "123456", "newpass1")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestResetPasswordUnknownUser(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	repo.On("GetByID", mock.Anything, userID).Return(nil, repository.ErrUserNotFound)

	err := uc.ResetPassword(context.Background(), userID.Hex(), "123456", "newpass1")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDeleteAccountInvalidIDIsNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	err := uc.DeleteAccount(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDeleteAccount(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	repo.On("Delete", mock.Anything, userID).Return(nil)

	assert.NoError(t, uc.DeleteAccount(context.Background(), userID.Hex()))
}

func TestUpdateUserRehashesOnlyNewPlaintext(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	var captured repository.UserUpdate
	repo.On("Update", mock.Anything, userID, mock.AnythingOfType("repository.UserUpdate")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(repository.UserUpdate) }).
		Return(&entity.User{ID: userID}, nil)

	password := "brandnew1"
	_, err := uc.UpdateUser(context.Background(), userID.Hex(), UpdateInput{Password: &password})
	require.NoError(t, err)

	require.NotNil(t, captured.Password)
	assert.NotEqual(t, "brandnew1", *captured.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*captured.Password), []byte("brandnew1")))
}

func TestUpdateUserWithoutPasswordLeavesDigestAlone(t *testing.T) {
	repo := new(MockUserRepository)
	uc := newTestUsecase(repo, new(MockSMSSender))

	userID := primitive.NewObjectID()
	var captured repository.UserUpdate
	repo.On("Update", mock.Anything, userID, mock.AnythingOfType("repository.UserUpdate")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(repository.UserUpdate) }).
		Return(&entity.User{ID: userID}, nil)

	name := "New Name"
	_, err := uc.UpdateUser(context.Background(), userID.Hex(), UpdateInput{FullName: &name})
	require.NoError(t, err)

	assert.Nil(t, captured.Password)
	require.NotNil(t, captured.FullName)
	assert.Equal(t, "New Name", *captured.FullName)
}
