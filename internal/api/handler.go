package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/services"
)

const authCookieName = "mealplans_auth"

type ClientStore interface {
	FindByCode(ctx context.Context, code string) (models.Client, bool, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Client, error)
	Create(ctx context.Context, client *models.Client) error
}

type HandlerDependencies struct {
	Engine       *services.Engine
	Auth         *services.AuthService
	Clients      ClientStore
	Location     *time.Location
	Logger       logrus.FieldLogger
	CookieSecure bool
	// DefaultLanguage applies to clients created without one.
	DefaultLanguage string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Handler struct {
	engine       *services.Engine
	auth         *services.AuthService
	clients      ClientStore
	validate     *validator.Validate
	location     *time.Location
	logger       logrus.FieldLogger
	cookieSecure bool
	language     string
	now          func() time.Time
	loginLimiter *attemptLimiter
}

func NewHandler(deps HandlerDependencies) (*Handler, error) {
	if deps.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if deps.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("client store is required")
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.DefaultLanguage != models.LangHebrew {
		deps.DefaultLanguage = models.LangEnglish
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Handler{
		engine:       deps.Engine,
		auth:         deps.Auth,
		clients:      deps.Clients,
		validate:     validator.New(),
		location:     deps.Location,
		logger:       deps.Logger,
		cookieSecure: deps.CookieSecure,
		language:     deps.DefaultLanguage,
		now:          deps.Clock,
		loginLimiter: newAttemptLimiter(loginAttemptLimit, loginAttemptWindow),
	}, nil
}
