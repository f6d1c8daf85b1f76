package services_test

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	args := m.Called(id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	args := m.Called(id, role)
	return args.Error(0)
}

func (m *MockUserRepository) ListRecent(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(limit)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(since)
	return args.Get(0).(int64), args.Error(1)
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	code := m.Run()
	os.Exit(code)
}

func notFound(key interface{}) error {
	return &repositories.NotFoundError{Entity: "user", Key: key}
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")
	ctx := context.Background()

	input := services.RegisterInput{
		Username:        "testuser",
		Email:           "test@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FullName:        "Test User",
	}

	mockRepo.On("GetByUsername", "testuser").Return(nil, notFound("testuser")).Once()
	mockRepo.On("GetByEmail", "test@example.com").Return(nil, notFound("test@example.com")).Once()
	mockRepo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		return u.Role == models.RoleCustomer &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password123")) == nil
	})).Return(nil).Once()

	user, err := authService.Register(ctx, input)
	assert.NoError(t, err)
	assert.Equal(t, "Test User", user.FullName)
	mockRepo.AssertExpectations(t)

	// Username already taken
	mockRepo.On("GetByUsername", "testuser").Return(&models.User{ID: 1}, nil).Once()
	_, err = authService.Register(ctx, input)
	var conflict *services.ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Username already exists", conflict.Message)
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByUsername", "testuser").Return(nil, notFound("testuser")).Once()
	mockRepo.On("GetByEmail", "test@example.com").Return(&models.User{ID: 1}, nil).Once()
	_, err = authService.Register(ctx, input)
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Email already exists", conflict.Message)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), "test_jwt_secret")
	ctx := context.Background()
	long := strings.Repeat("a", 73)
	// 40 runes, 80 bytes
	wide := strings.Repeat("é", 40)

	cases := []struct {
		in      services.RegisterInput
		message string
	}{
		{services.RegisterInput{Email: "a@example.com", Password: "x", ConfirmPassword: "x"}, "Username is required"},
		{services.RegisterInput{Username: "u", Password: "x", ConfirmPassword: "x"}, "Email is required"},
		{services.RegisterInput{Username: "u", Email: "a@example.com", Password: "   "}, "Password is required"},
		{services.RegisterInput{Username: "u", Email: "a@example.com", Password: "x", ConfirmPassword: "y"}, "Passwords do not match"},
		{services.RegisterInput{Username: "u", Email: "not-an-email", Password: "x", ConfirmPassword: "x"}, "Invalid email format"},
		{services.RegisterInput{Username: "u", Email: "a@example.com", Password: long, ConfirmPassword: long}, "Password must be at most 72 bytes"},
		{services.RegisterInput{Username: "u", Email: "a@example.com", Password: wide, ConfirmPassword: wide}, "Password must be at most 72 bytes"},
	}
	for _, tc := range cases {
		_, err := authService.Register(ctx, tc.in)
		var verr *services.ValidationError
		if assert.True(t, errors.As(err, &verr), tc.message) {
			assert.Equal(t, tc.message, verr.Message)
		}
	}
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, testJWTSecret)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       7,
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
	}

	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	got, err := authService.Login(ctx, "testuser", "password123")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	token, err := authService.IssueToken(got)
	assert.NoError(t, err)
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, float64(7), claims["user_id"])
	assert.Equal(t, "ADMIN", claims["role"])

	mockRepo.On("GetByID", uint(7)).Return(user, nil).Once()
	principal, err := authService.Authenticate(ctx, token)
	assert.NoError(t, err)
	assert.True(t, principal.IsAdmin())
	assert.Equal(t, uint(7), principal.UserID)
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	_, err = authService.Login(ctx, "testuser", "wrongpassword")
	assert.True(t, errors.Is(err, services.ErrInvalidCredentials))

	// Unknown user looks the same as a wrong password
	mockRepo.On("GetByUsername", "nonexistentuser").Return(nil, notFound("nonexistentuser")).Once()
	_, err = authService.Login(ctx, "nonexistentuser", "password123")
	assert.True(t, errors.Is(err, services.ErrInvalidCredentials))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateTokenRejectsForeignSignature(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), "right")
	other := services.NewAuthService(new(MockUserRepository), "wrong")

	token, err := other.IssueToken(&models.User{ID: 1, Username: "x", Role: models.RoleCustomer})
	assert.NoError(t, err)

	_, err = authService.Authenticate(context.Background(), token)
	assert.True(t, errors.Is(err, services.ErrInvalidToken))
}

func TestAuthService_AuthenticateUsesStoredRole(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")
	ctx := context.Background()

	token, err := authService.IssueToken(&models.User{ID: 5, Username: "boss", Email: "boss@example.com", Role: models.RoleAdmin})
	assert.NoError(t, err)

	// demoted after the token was issued
	mockRepo.On("GetByID", uint(5)).Return(&models.User{ID: 5, Username: "boss", Email: "boss@example.com", Role: models.RoleCustomer}, nil).Once()
	principal, err := authService.Authenticate(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, principal.Role)
	assert.False(t, principal.IsAdmin())

	// deleted accounts lose their tokens
	mockRepo.On("GetByID", uint(5)).Return(nil, notFound(uint(5))).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.True(t, errors.Is(err, services.ErrInvalidToken))

	mockRepo.On("GetByID", uint(5)).Return(nil, errors.New("connection reset")).Once()
	_, err = authService.Authenticate(ctx, token)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrInvalidToken))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_PasswordReset(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, "test_jwt_secret")
	ctx := context.Background()
	user := &models.User{ID: 3, Username: "reset", Email: "reset@example.com", Role: models.RoleCustomer}

	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, notFound("nobody@example.com")).Once()
	_, err := authService.RecoverPassword(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	mockRepo.On("GetByEmail", "reset@example.com").Return(user, nil)
	token, err := authService.RecoverPassword(ctx, "reset@example.com")
	assert.NoError(t, err)

	// a reset token is not a login token
	_, err = authService.Authenticate(ctx, token)
	assert.True(t, errors.Is(err, services.ErrInvalidToken))

	// the token is bound to its email
	err = authService.ResetPassword(ctx, token, services.ResetInput{Email: "other@example.com", NewPassword: "n", ConfirmPassword: "n"})
	assert.True(t, errors.Is(err, services.ErrInvalidToken))

	err = authService.ResetPassword(ctx, token, services.ResetInput{Email: "reset@example.com", NewPassword: "n", ConfirmPassword: "m"})
	var verr *services.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "Passwords do not match", verr.Message)

	long := strings.Repeat("p", 73)
	err = authService.ResetPassword(ctx, token, services.ResetInput{Email: "reset@example.com", NewPassword: long, ConfirmPassword: long})
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "New password must be at most 72 bytes", verr.Message)

	mockRepo.On("UpdatePassword", uint(3), mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass")) == nil
	})).Return(nil).Once()
	err = authService.ResetPassword(ctx, token, services.ResetInput{Email: "reset@example.com", NewPassword: "newpass", ConfirmPassword: "newpass"})
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)

	err = authService.ResetPassword(ctx, "", services.ResetInput{Email: "reset@example.com", NewPassword: "n", ConfirmPassword: "n"})
	assert.True(t, errors.Is(err, services.ErrInvalidToken))
}
