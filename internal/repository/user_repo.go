package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Sirdeeq/GBV-Backend/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUserNotFound   = errors.New("user not found")
)

const usersCollection = "users"

type mongoUser struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	FullName         string             `bson:"full_name"`
	Email            string             `bson:"email"`
	Organization     string             `bson:"organization"`
	Phone            string             `bson:"phone"`
	Address          string             `bson:"address"`
	Age              int                `bson:"age"`
	Role             string             `bson:"role"`
	ProfileImage     string             `bson:"profile_image"`
	Password         string             `bson:"password"`
	VerificationCode string             `bson:"verification_code,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	return &entity.User{
		ID:               m.ID,
		FullName:         m.FullName,
		Email:            m.Email,
		Organization:     m.Organization,
		Phone:            m.Phone,
		Address:          m.Address,
		Age:              m.Age,
		Role:             m.Role,
		ProfileImage:     m.ProfileImage,
		Password:         m.Password,
		VerificationCode: m.VerificationCode,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromEntity(e *entity.User) *mongoUser {
	return &mongoUser{
		ID:               e.ID,
		FullName:         e.FullName,
		Email:            e.Email,
		Organization:     e.Organization,
		Phone:            e.Phone,
		Address:          e.Address,
		Age:              e.Age,
		Role:             e.Role,
		ProfileImage:     e.ProfileImage,
		Password:         e.Password,
		VerificationCode: e.VerificationCode,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// UserUpdate is a partial update; nil fields are left untouched. Password,
// when set, must already be a digest — the repository never hashes.
type UserUpdate struct {
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

type UserRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure the unique email index (idempotent operation). The index is the
	// single arbiter for concurrent signups with the same email.
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, index); err != nil {
		logger.Warn("Failed to create email index for users collection (may already exist)", zap.Error(err))
	} else {
		logger.Info("Successfully ensured email index for users collection")
	}

	return &UserRepository{
		db:     db,
		logger: logger.Named("UserRepository"),
	}
}

func isDuplicateKey(err error) bool {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	var commandError mongo.CommandError
	return errors.As(err, &commandError) && commandError.Code == 11000
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	r.logger.Info("Attempting to create user in repository", zap.String("email", user.Email))

	dbUser := fromEntity(user)
	if dbUser.ID.IsZero() {
		dbUser.ID = primitive.NewObjectID()
	}
	now := time.Now()
	dbUser.CreatedAt = now
	dbUser.UpdatedAt = now

	if _, err := r.db.Collection(usersCollection).InsertOne(ctx, dbUser); err != nil {
		if isDuplicateKey(err) {
			r.logger.Warn("Duplicate email during user creation", zap.String("email", user.Email))
			return primitive.NilObjectID, ErrDuplicateEmail
		}
		r.logger.Error("Database error during user creation", zap.String("email", user.Email), zap.Error(err))
		return primitive.NilObjectID, err
	}
	r.logger.Info("User created successfully in repository", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	r.logger.Debug("Fetching user by ID", zap.String("userID", userID.Hex()))
	var dbUser mongoUser
	err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by ID", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.logger.Debug("Fetching user by email", zap.String("email", email))
	var dbUser mongoUser
	err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// GetByEmailOrPhone matches either contact field; forgot-password accepts both.
func (r *UserRepository) GetByEmailOrPhone(ctx context.Context, email, phone string) (*entity.User, error) {
	r.logger.Debug("Fetching user by email or phone", zap.String("email", email), zap.String("phone", phone))
	filter := bson.M{"$or": []bson.M{{"email": email}, {"phone": phone}}}
	var dbUser mongoUser
	err := r.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email or phone", zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// Update applies the non-nil fields of upd and returns the updated record.
func (r *UserRepository) Update(ctx context.Context, userID primitive.ObjectID, upd UserUpdate) (*entity.User, error) {
	r.logger.Info("Attempting to update user in repository", zap.String("userID", userID.Hex()))

	set := bson.M{"updated_at": time.Now()}
	if upd.FullName != nil {
		set["full_name"] = *upd.FullName
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.Organization != nil {
		set["organization"] = *upd.Organization
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.Age != nil {
		set["age"] = *upd.Age
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.ProfileImage != nil {
		set["profile_image"] = *upd.ProfileImage
	}
	if upd.Password != nil {
		set["password"] = *upd.Password
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var dbUser mongoUser
	err := r.db.Collection(usersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).
		Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Warn("User not found during update attempt", zap.String("userID", userID.Hex()))
			return nil, ErrUserNotFound
		}
		if isDuplicateKey(err) {
			r.logger.Warn("Duplicate email during user update", zap.String("userID", userID.Hex()))
			return nil, ErrDuplicateEmail
		}
		r.logger.Error("Database error during user update", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	r.logger.Info("User updated successfully in repository", zap.String("userID", userID.Hex()))
	return dbUser.toEntity(), nil
}

func (r *UserRepository) SetVerificationCode(ctx context.Context, userID primitive.ObjectID, code string) error {
	r.logger.Info("Saving verification code", zap.String("userID", userID.Hex()))
	update := bson.M{
		"$set": bson.M{
			"verification_code": code,
			"updated_at":        time.Now(),
		},
	}
	result, err := r.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error saving verification code", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetPassword stores the new digest and clears the verification code in a
// single write, so a consumed code can never be replayed.
func (r *UserRepository) ResetPassword(ctx context.Context, userID primitive.ObjectID, passwordDigest string) error {
	r.logger.Info("Resetting password", zap.String("userID", userID.Hex()))
	update := bson.M{
		"$set": bson.M{
			"password":   passwordDigest,
			"updated_at": time.Now(),
		},
		"$unset": bson.M{
			"verification_code": "",
		},
	}
	result, err := r.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("DB error resetting password", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("Password reset successfully", zap.String("userID", userID.Hex()))
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	r.logger.Info("Deleting user", zap.String("userID", userID.Hex()))
	result, err := r.db.Collection(usersCollection).DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		r.logger.Error("DB error deleting user", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("User deleted successfully", zap.String("userID", userID.Hex()))
	return nil
}

func (r *UserRepository) List(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	r.logger.Debug("Listing users", zap.Int64("skip", skip), zap.Int64("limit", limit))
	findOptions := options.Find()
	findOptions.SetSkip(skip)
	if limit > 0 {
		findOptions.SetLimit(limit)
	}
	findOptions.SetSort(bson.M{"created_at": -1})

	cursor, err := r.db.Collection(usersCollection).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		r.logger.Error("DB error listing users", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var dbUsers []*mongoUser
	if err = cursor.All(ctx, &dbUsers); err != nil {
		r.logger.Error("Error decoding listed users", zap.Error(err))
		return nil, err
	}

	var users []*entity.User
	for _, dbUser := range dbUsers {
		users = append(users, dbUser.toEntity())
	}
	return users, nil
}
