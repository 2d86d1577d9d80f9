package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listino/internal/dto"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrUnauthorized maps onto 401. Kept separate from the other sentinels so a
// bad login never leaks which half of the credential pair was wrong.
var ErrUnauthorized = errors.New("credenziali non valide")

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error)
	CreateUser(ctx context.Context, username, nome, password, rol string) (*dto.UserResponse, error)
}

type authService struct {
	users      repository.UserRepository
	secret     string
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users repository.UserRepository, secret string, tokenHours, refreshHours int) AuthService {
	return &authService{
		users:      users,
		secret:     secret,
		tokenTTL:   time.Duration(tokenHours) * time.Hour,
		refreshTTL: time.Duration(refreshHours) * time.Hour,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrUnauthorized
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid || claims["typ"] != "refresh" {
		return nil, ErrUnauthorized
	}

	idStr, _ := claims["user_id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil || !user.Activo {
		return nil, ErrUnauthorized
	}
	return s.issueTokens(user)
}

func (s *authService) CreateUser(ctx context.Context, username, nome, password, rol string) (*dto.UserResponse, error) {
	switch rol {
	case model.RolOperatore, model.RolApprovatore, model.RolAmministratore:
	default:
		return nil, fmt.Errorf("%w: ruolo sconosciuto %q", ErrValidation, rol)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: la password deve avere almeno 8 caratteri", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username:     username,
		Nome:         nome,
		PasswordHash: string(hash),
		Rol:          rol,
		Activo:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return &dto.UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Nome:     user.Nome,
		Rol:      user.Rol,
	}, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"rol":      user.Rol,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	})
	accessStr, err := access.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"typ":     "refresh",
		"iat":     now.Unix(),
		"exp":     now.Add(s.refreshTTL).Unix(),
	})
	refreshStr, err := refresh.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokenTTL.Seconds()),
		User: dto.UserResponse{
			ID:       user.ID.String(),
			Username: user.Username,
			Nome:     user.Nome,
			Rol:      user.Rol,
		},
	}, nil
}
