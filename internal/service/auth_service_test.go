package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type mockAuthRepo struct {
	created     []*models.User
	createErr   error
	userByEmail *models.User
	findErr     error
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u-new"
	m.created = append(m.created, user)
	return nil
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{Secret: "secret", Expiry: time.Hour})
}

func validRegister() dto.RegisterRequest {
	return dto.RegisterRequest{Name: "Asha", Email: "asha@college.edu", Password: "secret1", Role: "student", Branch: "CSE", Enrollment: "EN42"}
}

func TestRegisterAdminDropsBranch(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	req := validRegister()
	req.Role = "admin"
	req.Branch = "MECH"
	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, user.Branch)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
}

func TestRegisterAcceptsMixedCaseRole(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	req := validRegister()
	req.Role = " Admin "

	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Nil(t, user.Branch)

	req = validRegister()
	req.Role = "RESOLVER"
	user, err = svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleResolver, user.Role)
}

func TestRegisterRequiresBranchForNonAdmins(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	req := validRegister()
	req.Branch = "  "

	_, err := svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRegisterDefaultsRoleToStudent(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	req := validRegister()
	req.Role = ""

	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
}

func TestRegisterRejectsShortPasswordAndUnknownRole(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	req := validRegister()
	req.Password = "123"
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = validRegister()
	req.Role = "superuser"
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{createErr: repository.ErrDuplicate})

	_, err := svc.Register(context.Background(), validRegister())
	require.Error(t, err)
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "r@college.edu", PasswordHash: string(hash), Role: models.RoleResolver}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "r@college.edu", Password: "password"})
	require.NoError(t, err)
	assert.EqualValues(t, 3600, res.ExpiresIn)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleResolver, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	svc := newAuthService(&mockAuthRepo{userByEmail: &models.User{ID: "u1", PasswordHash: string(hash)}})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "r@college.edu", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	svc = newAuthService(&mockAuthRepo{})
	_, err = svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@college.edu", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	claims := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
