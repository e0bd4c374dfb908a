package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-journeylog/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	uniqueViolation = "23505"

	userColumns = `id, email, username, password_hash, full_name, avatar_url, created_at, updated_at`
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingFields      = errors.New("email, username and password are required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRefresh     = errors.New("refresh token invalid")
	ErrUserNotFound       = errors.New("user not found")
)

// Service owns journeylog accounts. Access tokens are stateless; refresh
// tokens are stored so logout and rotation can revoke them.
type Service struct {
	secret []byte
	db     db.Querier
	now    func() time.Time
}

// tokenKind keeps a refresh token from being accepted as an access token
// and the other way round.
type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

func (k tokenKind) ttl() time.Duration {
	if k == kindRefresh {
		return refreshTokenTTL
	}
	return accessTokenTTL
}

type Claims struct {
	UserID string    `json:"user_id"`
	Kind   tokenKind `json:"kind"`
	jwt.RegisteredClaims
}

func NewService(secret string, q db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     q,
		now:    time.Now,
	}
}

var (
	signTokenFn       = (*Service).signToken
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return User{}, TokenResponse{}, ErrMissingFields
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		AvatarURL:    req.AvatarURL,
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, full_name, avatar_url)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Username, user.PasswordHash, user.FullName, user.AvatarURL).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, TokenResponse{}, ErrEmailTaken
		}
		return User{}, TokenResponse{}, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	user, err := scanUser(s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(req.Email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// Me returns the account behind an access token.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	userID, err := s.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := s.Logout(ctx, refreshToken); err != nil {
		return TokenResponse{}, err
	}
	return s.GenerateTokens(ctx, userID)
}

// Logout revokes a refresh token. Unknown or already revoked tokens report
// ErrInvalidRefresh.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL
	`, refreshToken)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidRefresh
	}
	return nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, kindAccess)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := signTokenFn(s, userID, kindRefresh)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token, kindRefresh)
	if err != nil {
		return "", ErrInvalidRefresh
	}

	var userID string
	var expiresAt time.Time
	err = s.db.QueryRow(ctx, `
		SELECT user_id, expires_at
		FROM refresh_tokens
		WHERE token = $1 AND revoked_at IS NULL
	`, token).Scan(&userID, &expiresAt)
	if err != nil || userID != claims.UserID || s.now().After(expiresAt) {
		return "", ErrInvalidRefresh
	}
	return claims.UserID, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token, kindAccess)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) signToken(userID string, kind tokenKind) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(kind.ttl())),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseToken(token string, kind tokenKind) (*Claims, error) {
	return verifyToken(s.secret, token, kind)
}

// verifyToken checks an HS256 signature, expiry and the token kind.
func verifyToken(secret []byte, token string, kind tokenKind) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, errors.New("token invalid")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%s token expected", kind)
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, s.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
