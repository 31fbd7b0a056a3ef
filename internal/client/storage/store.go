// Package storage is the persistent session store: the auth token, its
// optional expiry, the cached user snapshot and the push device token, kept in
// a local SQLite file that survives restarts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/repositories/session"
	"github.com/d-madiou/to-meet-yours/internal/dbx"
	"github.com/google/uuid"
)

const (
	KeyAuthToken   = "authToken"
	KeyUserData    = "userData"
	KeyTokenExpiry = "tokenExpiry"
	KeyDeviceToken = "deviceToken"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) repo(db dbx.DBTX) session.Repository {
	return session.NewSQLiteRepository(db)
}

// Token returns the stored token, or "" if none is stored. A token whose
// recorded expiry has passed is treated as absent and the whole session is
// cleared.
func (s *Store) Token(ctx context.Context) (string, error) {
	repo := s.repo(s.db)

	token, err := repo.Get(ctx, KeyAuthToken)
	if err != nil {
		return "", err
	}
	if len(token) == 0 {
		return "", nil
	}

	expiry, err := repo.Get(ctx, KeyTokenExpiry)
	if err != nil {
		return "", err
	}
	if len(expiry) > 0 {
		unix, err := strconv.ParseInt(string(expiry), 10, 64)
		if err != nil || s.now().After(time.Unix(unix, 0)) {
			if err := s.ClearSession(ctx); err != nil {
				return "", err
			}
			return "", nil
		}
	}

	return string(token), nil
}

// SaveToken persists token. A positive ttl records an expiry; zero removes
// any previous one.
func (s *Store) SaveToken(ctx context.Context, token string, ttl time.Duration) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.saveToken(ctx, s.repo(tx), token, ttl)
	})
}

func (s *Store) saveToken(ctx context.Context, repo session.Repository, token string, ttl time.Duration) error {
	if err := repo.Set(ctx, KeyAuthToken, []byte(token)); err != nil {
		return err
	}
	if ttl <= 0 {
		return repo.Delete(ctx, KeyTokenExpiry)
	}
	expiry := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	return repo.Set(ctx, KeyTokenExpiry, []byte(expiry))
}

// SaveSession writes the token and the user snapshot in one transaction.
func (s *Store) SaveSession(ctx context.Context, token string, user *models.User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := s.saveToken(ctx, repo, token, ttl); err != nil {
			return err
		}
		return repo.Set(ctx, KeyUserData, data)
	})
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.repo(s.db).Set(ctx, KeyUserData, data)
}

// User returns the cached user snapshot, or nil if none is stored. The
// snapshot is display data only and says nothing about token validity.
func (s *Store) User(ctx context.Context) (*models.User, error) {
	data, err := s.repo(s.db).Get(ctx, KeyUserData)
	if err != nil || len(data) == 0 {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (s *Store) ClearToken(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, KeyAuthToken, KeyTokenExpiry)
}

// ClearSession removes every auth-related key. The device token survives.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.repo(s.db).Delete(ctx, KeyAuthToken, KeyTokenExpiry, KeyUserData)
}

// DeviceToken returns the installation's push token, creating it on first use.
func (s *Store) DeviceToken(ctx context.Context) (string, error) {
	repo := s.repo(s.db)
	v, err := repo.Get(ctx, KeyDeviceToken)
	if err != nil {
		return "", err
	}
	if len(v) > 0 {
		return string(v), nil
	}
	token := uuid.NewString()
	if err := repo.Set(ctx, KeyDeviceToken, []byte(token)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
