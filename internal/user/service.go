package user

import (
	"context"
	"strings"

	"canteen-be/internal/canteen"
	"canteen-be/internal/logger"
	"canteen-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, params RegisterParams) (*User, error)
	// Login returns a signed token on success.
	Login(ctx context.Context, email, password string) (string, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

type service struct {
	repo     Repository
	canteens canteen.Repository
}

func NewService(repo Repository, canteens canteen.Repository) Service {
	return &service{repo: repo, canteens: canteens}
}

func (s *service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	email := strings.ToLower(strings.TrimSpace(params.Email))
	role := params.Role
	if role == "" {
		role = utils.RoleConsumer
	}

	// Staff accounts are pinned to the canteen whose acronym matches the
	// mailbox name, e.g. mc@campus.edu registers against canteen MC.
	var canteenID *int64
	if role == utils.RoleCanteen {
		prefix, _, _ := strings.Cut(email, "@")
		c, err := s.canteens.GetByAcronym(ctx, strings.ToUpper(prefix))
		if err != nil {
			log.Warn("staff canteen resolution failed", zap.String("prefix", prefix), zap.Error(err))
			return nil, err
		}
		canteenID = &c.ID
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, uuid.NewString(), params.Name, email, hash, role, canteenID)
	if err != nil {
		log.Warn("registration failed", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrUserNotFound {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return GenerateJWT(u.ID, u.Email, u.Role, u.CanteenID)
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
