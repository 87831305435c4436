package auth

import (
	"context"
	"errors"
	"fmt"

	"gridbase/internal/engine"
	"gridbase/internal/store"
)

// Service verifies credentials against the admin table and issues and
// validates stateless session tokens.
type Service struct {
	store  *store.Store
	secret string
}

func NewService(s *store.Store, secret string) *Service {
	return &Service{store: s, secret: secret}
}

// Login checks the password for the named admin account and returns a
// fresh session token. Unknown usernames and wrong passwords fail with
// the identical error so account existence cannot be probed.
func (s *Service) Login(ctx context.Context, username, password string) (string, *Identity, error) {
	pb := s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT id, username, password_hash FROM %s WHERE username = %s",
		store.AdminTable, pb.Add(username))

	row, err := store.QueryRow(ctx, s.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, engine.AuthFailedError()
		}
		return "", nil, err
	}

	hash, _ := row["password_hash"].(string)
	if !CheckPassword(password, hash) {
		return "", nil, engine.AuthFailedError()
	}

	ident := &Identity{ID: rowID(row), Username: username}
	token, err := GenerateToken(ident.ID, ident.Username, s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, ident, nil
}

// Verify validates a token and returns the identity it asserts. Bad
// signature, malformed input and expiry all collapse into the same error.
func (s *Service) Verify(tokenStr string) (*Identity, error) {
	claims, err := ParseToken(tokenStr, s.secret)
	if err != nil {
		return nil, engine.InvalidTokenError()
	}
	return &Identity{ID: claims.ID, Username: claims.Username}, nil
}

// CreateAccount creates a new admin account with a hashed credential.
// The raw password is never stored or logged, and the returned record
// never includes the hash.
func (s *Service) CreateAccount(ctx context.Context, username, password string) (map[string]any, error) {
	if username == "" || password == "" {
		return nil, engine.InvalidPayloadError("Username and password are required")
	}

	pb := s.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE username = %s", store.AdminTable, pb.Add(username))
	var count int64
	if err := s.store.DB.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, engine.UsernameTakenError(username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	pb = s.store.Dialect.NewParamBuilder()
	sqlStr = fmt.Sprintf(
		"INSERT INTO %s (username, password_hash) VALUES (%s, %s) RETURNING id, username, created_at",
		store.AdminTable, pb.Add(username), pb.Add(hash))

	row, err := store.QueryRow(ctx, s.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(s.store.Dialect.MapError(err), store.ErrUniqueViolation) {
			return nil, engine.UsernameTakenError(username)
		}
		return nil, err
	}
	return row, nil
}

func rowID(row map[string]any) int64 {
	switch v := row["id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
