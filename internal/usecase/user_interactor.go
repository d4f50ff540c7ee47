package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// userUseCase implements UserUseCase
type userUseCase struct {
	userStorage ports.UserStorage
	tokens      TokenIssuer
	cache       ports.Cache
	logger      *slog.Logger
	hashCost    int
	now         func() time.Time
}

// NewUserUseCase создает новый экземпляр UserUseCase
func NewUserUseCase(userStorage ports.UserStorage, tokens TokenIssuer, cache ports.Cache, logger *slog.Logger) UserUseCase {
	return &userUseCase{
		userStorage: userStorage,
		tokens:      tokens,
		cache:       cache,
		logger:      logger,
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

var (
	errUserExists         = domain.NewConflict("User exists already, please login instead.", nil)
	errInvalidCredentials = domain.NewUnauthorized("Invalid credentials, could not log you in.", nil)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maxPasswordBytes - предел bcrypt, длиннее GenerateFromPassword не принимает
const maxPasswordBytes = 72

func (uc *userUseCase) Signup(ctx context.Context, in SignupInput) (*domain.AuthResult, error) {
	if len(in.Password) > maxPasswordBytes {
		return nil, domain.NewUnprocessable("Invalid inputs passed, please check your data.", bcrypt.ErrPasswordTooLong)
	}

	email := normalizeEmail(in.Email)

	existing, err := uc.userStorage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewInternal("Signing up failed, please try again later.", err)
	}
	if existing != nil {
		return nil, errUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.hashCost)
	if err != nil {
		return nil, domain.NewInternal("Could not create user, please try again.", err)
	}

	now := uc.now()
	user := domain.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  string(hash),
		Image:     in.Image,
		PlaceIDs:  pq.StringArray{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.userStorage.CreateUser(ctx, user); err != nil {
		// гонка двух регистраций с одним email ловится уникальным индексом
		if errors.Is(err, ports.ErrDuplicateEmail) {
			return nil, errUserExists
		}
		return nil, domain.NewInternal("Signing up failed, please try again later.", err)
	}

	if err := uc.cache.Delete(ctx, usersCacheKey); err != nil {
		uc.logger.Warn("cache invalidation failed", "key", usersCacheKey, "error", err)
	}

	token, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.NewInternal("Signing up failed, please try again later.", err)
	}

	uc.logger.Info("user signed up", "user_id", user.ID)
	return &domain.AuthResult{UserID: user.ID, Email: user.Email, Token: token}, nil
}

func (uc *userUseCase) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := uc.userStorage.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, domain.NewInternal("Logging in failed, please try again later.", err)
	}
	if user == nil {
		return nil, errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := uc.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.NewInternal("Logging in failed, please try again later.", err)
	}

	return &domain.AuthResult{UserID: user.ID, Email: user.Email, Token: token}, nil
}

func (uc *userUseCase) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	var cached []domain.UserSummary
	if found, err := uc.cache.Get(ctx, usersCacheKey, &cached); err != nil {
		uc.logger.Warn("users cache read failed", "error", err)
	} else if found {
		return cached, nil
	}

	users, err := uc.userStorage.ListUsers(ctx)
	if err != nil {
		return nil, domain.NewInternal("Fetching users failed, please try again later.", err)
	}

	summaries := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}

	if err := uc.cache.Set(ctx, usersCacheKey, summaries); err != nil {
		uc.logger.Warn("users cache write failed", "error", err)
	}
	return summaries, nil
}
