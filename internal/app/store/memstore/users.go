package memstore

import (
	"context"
	"fmt"
	"time"

	userstore "github.com/dalemusser/stratadrive/internal/app/store/users"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/normalize"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users mirrors userstore.Store.
type Users struct{ db *DB }

var errUserNotFound = fmt.Errorf("%w: user not found", apperr.ErrNotFound)

func (s *Users) byToken(tok string) (models.User, bool) {
	for _, u := range s.db.users {
		if u.TokenIdentifier == tok {
			return u, true
		}
	}
	return models.User{}, false
}

func (s *Users) Create(_ context.Context, u models.User) (models.User, error) {
	u, err := userstore.Prepare(u)
	if err != nil {
		return models.User{}, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.byToken(u.TokenIdentifier); ok {
		return models.User{}, userstore.ErrDuplicateToken
	}
	s.db.users[u.ID] = u
	return u, nil
}

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	return &u, nil
}

func (s *Users) GetByToken(_ context.Context, tokenIdentifier string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.byToken(tokenIdentifier)
	if !ok {
		return nil, errUserNotFound
	}
	return &u, nil
}

func (s *Users) Update(_ context.Context, tokenIdentifier string, upd models.UserUpdate, now time.Time) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.byToken(tokenIdentifier)
	if !ok {
		return nil, errUserNotFound
	}
	if upd.Name != nil {
		u.Name = normalize.Name(*upd.Name)
		u.NameCI = text.Fold(u.Name)
	}
	if upd.Email != nil {
		u.Email = normalize.Email(*upd.Email)
	}
	if upd.Image != nil {
		u.Image = *upd.Image
	}
	u.LastLoginAt = now
	s.db.users[u.ID] = u
	return &u, nil
}

func (s *Users) DeleteByToken(_ context.Context, tokenIdentifier string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.byToken(tokenIdentifier)
	if !ok {
		return nil, errUserNotFound
	}
	delete(s.db.users, u.ID)
	return &u, nil
}

func (s *Users) TouchLogin(_ context.Context, id primitive.ObjectID, now time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return errUserNotFound
	}
	u.LastLoginAt = now
	s.db.users[id] = u
	return nil
}

func (s *Users) SetRole(_ context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return fmt.Errorf("%w: role must be member, admin or super-admin", apperr.ErrInvalidInput)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return errUserNotFound
	}
	u.Role = role
	s.db.users[id] = u
	return nil
}
