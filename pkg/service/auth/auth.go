// Package auth registers users and checks their credentials. Sessions are
// either JWT bearer tokens (HTTP) or an explicit actor per call (CLI).
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/domain"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/amirasaad/householdledger/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userContextKey contextKey = "user"

// Strategy authenticates users and identifies the current one.
type Strategy interface {
	Login(ctx context.Context, username, password string) (*user.User, error)
	CurrentUser(ctx context.Context) (string, error)
	GenerateToken(ctx context.Context, u *user.User) (string, error)
}

type Service struct {
	uow      repository.UnitOfWork
	strategy Strategy
	logger   *slog.Logger
}

func New(
	uow repository.UnitOfWork,
	strategy Strategy,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, strategy: strategy, logger: logger}
}

func NewWithBasic(
	uow repository.UnitOfWork,
	logger *slog.Logger,
) *Service {
	return New(uow, NewBasicStrategy(uow, logger), logger)
}

func NewWithJWT(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *Service {
	return New(uow, NewJWTStrategy(uow, cfg, logger), logger)
}

// Register validates the form and creates a user with no memberships.
func (s *Service) Register(
	ctx context.Context,
	username, password string,
) (u *user.User, err error) {
	log := s.logger.With("context", "Register", "username", username)
	log.Debug("Register called")

	u, err = user.New(username, password)
	if err != nil {
		log.Warn("Register rejected", "error", err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		existing, err := users.Get(ctx, u.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrUsernameTaken
		}
		return users.Create(ctx, u)
	})
	if err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	log.Info("User registered")
	return u, nil
}

// Authenticate checks the credentials with the configured strategy.
func (s *Service) Authenticate(
	ctx context.Context,
	username, password string,
) (u *user.User, err error) {
	log := s.logger.With("context", "Authenticate", "username", username)
	log.Debug("Authenticate called")
	u, err = s.strategy.Login(ctx, username, password)
	if err != nil {
		log.Error("Authenticate failed", "error", err)
		return nil, err
	}
	log.Info("Authenticate successful")
	return u, nil
}

// Login authenticates and issues a session token. The token is empty for
// strategies without tokens.
func (s *Service) Login(
	ctx context.Context,
	username, password string,
) (u *user.User, token string, err error) {
	u, err = s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	token, err = s.GenerateToken(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) GenerateToken(
	ctx context.Context,
	u *user.User,
) (string, error) {
	log := s.logger.With("username", u.Username)
	log.Debug("GenerateToken called")
	token, err := s.strategy.GenerateToken(ctx, u)
	if err != nil {
		log.Error("GenerateToken failed", "error", err)
		return "", err
	}
	return token, nil
}

// CurrentUser returns the username carried by a verified token.
func (s *Service) CurrentUser(token *jwt.Token) (string, error) {
	return s.strategy.CurrentUser(WithToken(context.Background(), token))
}

// WithToken stores a verified token in ctx for Strategy.CurrentUser.
func WithToken(ctx context.Context, token *jwt.Token) context.Context {
	return context.WithValue(ctx, userContextKey, token)
}

// checkCredentials loads the user and compares the password. Unknown users
// still pay for one bcrypt comparison.
func checkCredentials(
	ctx context.Context,
	uow repository.UnitOfWork,
	username, password string,
) (*user.User, error) {
	users, err := uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	u, err := users.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		utils.BurnPasswordCheck(password)
		return nil, domain.ErrAuthFailure
	}
	if !u.CheckPassword(password) {
		return nil, domain.ErrAuthFailure
	}
	return u, nil
}

// JWTStrategy implements Strategy with HS256 bearer tokens.
type JWTStrategy struct {
	uow    repository.UnitOfWork
	cfg    *config.Jwt
	logger *slog.Logger
}

func NewJWTStrategy(
	uow repository.UnitOfWork,
	cfg *config.Jwt,
	logger *slog.Logger,
) *JWTStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTStrategy{uow: uow, cfg: cfg, logger: logger}
}

func (s *JWTStrategy) Login(
	ctx context.Context,
	username, password string,
) (*user.User, error) {
	log := s.logger.With("context", "Login", "username", username)
	log.Debug("Login called")
	u, err := checkCredentials(ctx, s.uow, username, password)
	if err != nil {
		log.Error("Login failed", "error", err)
		return nil, err
	}
	return u, nil
}

func (s *JWTStrategy) GenerateToken(
	ctx context.Context,
	u *user.User,
) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": u.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.Expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		s.logger.Error("GenerateToken failed", "username", u.Username, "error", err)
		return "", err
	}
	return signed, nil
}

func (s *JWTStrategy) CurrentUser(ctx context.Context) (string, error) {
	log := s.logger.With("context", "CurrentUser")
	token, ok := ctx.Value(userContextKey).(*jwt.Token)
	if !ok || token == nil {
		log.Error("CurrentUser failed", "error", domain.ErrAuthFailure)
		return "", domain.ErrAuthFailure
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Error("CurrentUser failed", "error", domain.ErrAuthFailure)
		return "", domain.ErrAuthFailure
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		log.Error("CurrentUser failed", "error", domain.ErrAuthFailure)
		return "", domain.ErrAuthFailure
	}
	return username, nil
}

// BasicStrategy implements Strategy for the CLI: the password is checked on
// every invocation and no token is issued.
type BasicStrategy struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func NewBasicStrategy(
	uow repository.UnitOfWork,
	logger *slog.Logger,
) *BasicStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasicStrategy{uow: uow, logger: logger}
}

func (s *BasicStrategy) Login(
	ctx context.Context,
	username, password string,
) (*user.User, error) {
	log := s.logger.With("username", username)
	log.Debug("BasicAuth Login called")
	u, err := checkCredentials(ctx, s.uow, username, password)
	if err != nil {
		log.Error("BasicAuth Login failed", "error", err)
		return nil, err
	}
	return u, nil
}

// CurrentUser is not supported: CLI callers pass the actor explicitly.
func (s *BasicStrategy) CurrentUser(context.Context) (string, error) {
	return "", domain.ErrAuthFailure
}

func (s *BasicStrategy) GenerateToken(context.Context, *user.User) (string, error) {
	return "", nil // No token for basic auth
}
