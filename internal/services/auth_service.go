package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/mealplans/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const DefaultSessionTTL = 12 * time.Hour

type DietitianRepository interface {
	FindByID(ctx context.Context, dietitianID uint) (models.Dietitian, bool, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.Dietitian, bool, error)
	UpdatePassword(ctx context.Context, dietitianID uint, passwordHash string, mustChangePassword bool) error
}

type sessionClaims struct {
	DietitianID uint `json:"did"`
	jwt.RegisteredClaims
}

// AuthService signs dietitians in with bcrypt passwords and HS256 session
// tokens.
type AuthService struct {
	dietitians DietitianRepository
	secretKey  []byte
	sessionTTL time.Duration
}

func NewAuthService(dietitians DietitianRepository, secretKey string, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		dietitians: dietitians,
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
	}
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords both
// yield ErrInvalidCredentials.
func (service *AuthService) Authenticate(ctx context.Context, email string, password string) (models.Dietitian, error) {
	dietitian, found, err := service.dietitians.FindByNormalizedEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return models.Dietitian{}, err
	}
	if !found {
		return models.Dietitian{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(dietitian.PasswordHash), []byte(password)); err != nil {
		return models.Dietitian{}, ErrInvalidCredentials
	}
	return dietitian, nil
}

func (service *AuthService) IssueToken(dietitian models.Dietitian, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(service.sessionTTL)
	claims := sessionClaims{
		DietitianID: dietitian.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(dietitian.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(service.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates raw against now and loads the dietitian it names.
func (service *AuthService) ParseToken(ctx context.Context, raw string, now time.Time) (models.Dietitian, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return service.secretKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return models.Dietitian{}, ErrInvalidToken
	}

	dietitian, found, err := service.dietitians.FindByID(ctx, claims.DietitianID)
	if err != nil {
		return models.Dietitian{}, err
	}
	if !found {
		return models.Dietitian{}, ErrInvalidToken
	}
	return dietitian, nil
}

// ChangePassword replaces the password of dietitian and clears the forced
// change flag set by reset-password.
func (service *AuthService) ChangePassword(ctx context.Context, dietitian models.Dietitian, currentPassword string, newPassword string, confirmPassword string) error {
	if err := ValidatePasswordChange(dietitian.PasswordHash, currentPassword, newPassword, confirmPassword); err != nil {
		return err
	}
	hash, err := HashPassword(strings.TrimSpace(newPassword))
	if err != nil {
		return err
	}
	return service.dietitians.UpdatePassword(ctx, dietitian.ID, hash, false)
}
