package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sirdeeq/GBV-Backend/internal/entity"
	"github.com/Sirdeeq/GBV-Backend/internal/repository"
	"github.com/Sirdeeq/GBV-Backend/internal/sms"
	"github.com/Sirdeeq/GBV-Backend/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxProfileImageSize = 10 << 20 // 10 MiB multipart memory budget

// ImageStorage stores an uploaded profile image and returns its URL.
type ImageStorage interface {
	Upload(ctx context.Context, originalFileName, contentType string, data []byte) (string, error)
}

type UserHandler struct {
	usecase    *usecase.UserUsecase
	storage    ImageStorage
	validate   *validator.Validate
	logger     *zap.Logger
	production bool
}

func NewUserHandler(ucase *usecase.UserUsecase, storage ImageStorage, logger *zap.Logger, production bool) *UserHandler {
	return &UserHandler{
		usecase:    ucase,
		storage:    storage,
		validate:   validator.New(),
		logger:     logger.Named("UserHTTPHandler"),
		production: production,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeInternalError logs the cause and hides it from the client in
// production mode.
func (h *UserHandler) writeInternalError(w http.ResponseWriter, err error, publicMessage string) {
	h.logger.Error("Internal error handling request", zap.Error(err))
	if h.production {
		writeMessage(w, http.StatusInternalServerError, publicMessage)
		return
	}
	writeJSON(w, http.StatusInternalServerError, struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}{Message: publicMessage, Error: err.Error()})
}

// violatedFields lists the request fields that failed validation.
func violatedFields(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, fieldError.Field())
	}
	return fields
}

type signupRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Organization    string `json:"organization" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	Address         string `json:"address" validate:"required"`
	Age             int    `json:"age" validate:"gte=0"`
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Signup", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.logger.Warn("Signup validation failed", zap.Strings("fields", violatedFields(err)))
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Message: "Validation failed",
			Errors:  violatedFields(err),
		})
		return
	}
	h.logger.Info("HTTP Signup request received", zap.String("email", req.Email))

	_, err := h.usecase.Signup(r.Context(), usecase.SignupInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Organization:    req.Organization,
		Phone:           req.Phone,
		Address:         req.Address,
		Age:             req.Age,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrPasswordMismatch):
			writeMessage(w, http.StatusBadRequest, "Passwords do not match")
		case errors.Is(err, repository.ErrDuplicateEmail):
			writeMessage(w, http.StatusBadRequest, "Email is already in use")
		default:
			h.writeInternalError(w, err, "Error creating user")
		}
		return
	}

	writeMessage(w, http.StatusCreated, "User created successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string          `json:"message"`
	User    *entity.Profile `json:"user"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Login", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.usecase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		// 404 here discloses which emails are registered. Kept to match the
		// existing API contract; see DESIGN.md before changing.
		case errors.Is(err, repository.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		default:
			h.writeInternalError(w, err, "An error occurred while processing your request")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    user.Public(),
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Stateless: no server-side session to invalidate.
	writeMessage(w, http.StatusOK, "User logged out successfully")
}

type deleteAccountRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for DeleteAccount", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.usecase.DeleteAccount(r.Context(), req.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.writeInternalError(w, err, "Error deleting user account")
		return
	}

	writeMessage(w, http.StatusOK, "User account deleted successfully")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for ForgotPassword", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" && req.Phone == "" {
		writeMessage(w, http.StatusBadRequest, "Email or phone is required")
		return
	}

	if err := h.usecase.ForgotPassword(r.Context(), req.Email, req.Phone); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, sms.ErrDelivery):
			h.writeInternalError(w, err, "Error sending verification code")
		default:
			h.writeInternalError(w, err, "An error occurred while processing your request")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Verification code sent successfully.")
}

type resetPasswordRequest struct {
	UserID           string `json:"userId" validate:"required"`
	VerificationCode string `json:"verificationCode" validate:"required"`
	NewPassword      string `json:"newPassword" validate:"required,min=6"`
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for ResetPassword", zap.Error(err))
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Message: "Validation failed",
			Errors:  violatedFields(err),
		})
		return
	}

	err := h.usecase.ResetPassword(r.Context(), req.UserID, req.VerificationCode, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "User not found")
		case errors.Is(err, usecase.ErrInvalidCode):
			writeMessage(w, http.StatusBadRequest, "Incorrect verification code")
		default:
			h.writeInternalError(w, err, "Error resetting password")
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successfully")
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.ParseInt(r.URL.Query().Get("skip"), 10, 64)
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	users, err := h.usecase.ListUsers(r.Context(), skip, limit)
	if err != nil {
		h.writeInternalError(w, err, "Error fetching users")
		return
	}

	profiles := make([]*entity.Profile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, user.Public())
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	user, err := h.usecase.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.writeInternalError(w, err, "Error fetching user")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

type updateUserRequest struct {
	FullName     *string `json:"full_name" validate:"omitempty,min=1"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Organization *string `json:"organization" validate:"omitempty,min=1"`
	Phone        *string `json:"phone" validate:"omitempty,min=1"`
	Address      *string `json:"address" validate:"omitempty,min=1"`
	Age          *int    `json:"age" validate:"omitempty,gte=0"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
}

// UpdateUser accepts either a JSON body or a multipart form with an optional
// profileImage attachment. The image goes to object storage and only its URL
// is persisted.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req updateUserRequest
	var imageURL *string

	contentType := r.Header.Get("Content-Type")
	if r.Body != nil && isMultipart(contentType) {
		if err := r.ParseMultipartForm(maxProfileImageSize); err != nil {
			h.logger.Error("Failed to parse multipart form for UpdateUser", zap.Error(err))
			writeMessage(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		req = updateRequestFromForm(r)

		file, header, err := r.FormFile("profileImage")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				h.writeInternalError(w, readErr, "Error reading profile image")
				return
			}
			url, upErr := h.storage.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
			if upErr != nil {
				h.writeInternalError(w, upErr, "Error uploading profile image")
				return
			}
			imageURL = &url
		} else if !errors.Is(err, http.ErrMissingFile) {
			writeMessage(w, http.StatusBadRequest, "Invalid profile image upload")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error("Failed to decode request body for UpdateUser", zap.Error(err))
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Message: "Validation failed",
			Errors:  violatedFields(err),
		})
		return
	}

	user, err := h.usecase.UpdateUser(r.Context(), userID, usecase.UpdateInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Organization: req.Organization,
		Phone:        req.Phone,
		Address:      req.Address,
		Age:          req.Age,
		ProfileImage: imageURL,
		Password:     req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			writeMessage(w, http.StatusNotFound, "User not found")
		case errors.Is(err, repository.ErrDuplicateEmail):
			writeMessage(w, http.StatusBadRequest, "Email is already in use")
		default:
			h.writeInternalError(w, err, "Error updating user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	if err := h.usecase.DeleteAccount(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		h.writeInternalError(w, err, "Error deleting user")
		return
	}

	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func isMultipart(contentType string) bool {
	return strings.HasPrefix(contentType, "multipart/form-data")
}

func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func updateRequestFromForm(r *http.Request) updateUserRequest {
	req := updateUserRequest{
		FullName:     formValue(r, "full_name"),
		Email:        formValue(r, "email"),
		Organization: formValue(r, "organization"),
		Phone:        formValue(r, "phone"),
		Address:      formValue(r, "address"),
		Password:     formValue(r, "password"),
	}
	if ageValue := formValue(r, "age"); ageValue != nil {
		if age, err := strconv.Atoi(*ageValue); err == nil {
			req.Age = &age
		}
	}
	return req
}
