package service

import (
	"context"
	"time"

	"fabrisys/internal/apierror"
	"fabrisys/internal/config"
	"fabrisys/internal/dto"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user and a wrong password alike.
var ErrInvalidCredentials = apierror.Invalid("invalid credentials")

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.OperatorRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.OperatorRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	op, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	token, err := GenerateToken(s.cfg.JWTSecret, op, ttl)
	if err != nil {
		return nil, persistence("sign token", err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.JWTExpirationHours * 3600,
		Operator: dto.OperatorResponse{
			ID:             op.ID.String(),
			Username:       op.Username,
			Name:           op.Name,
			Role:           op.Role,
			LocationID:     op.LocationID.String(),
			OrganizationID: op.OrganizationID.String(),
		},
	}, nil
}

// GenerateToken signs an HS256 access token carrying the claims that
// middleware.JWTAuth turns into an ActorContext.
func GenerateToken(secret string, op *model.Operator, ttl time.Duration) (string, error) {
	issued := time.Now()
	claims := jwt.MapClaims{
		"operator_id":     op.ID.String(),
		"username":        op.Username,
		"role":            op.Role,
		"location_id":     op.LocationID.String(),
		"organization_id": op.OrganizationID.String(),
		"iat":             issued.Unix(),
		"exp":             issued.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
