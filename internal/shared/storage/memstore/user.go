package memstore

import (
	"context"
	"time"

	"tragic-bricks/internal/shared/model"
	"tragic-bricks/internal/shared/storage"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	for _, u := range s.st.users {
		if u.Email == user.Email || u.Username == user.Username {
			return storage.ErrDuplicate
		}
	}
	s.st.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(func(u model.User) bool { return u.Email == email }), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(func(u model.User) bool { return u.Username == username }), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.st.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, user *model.User) error {
	defer s.beginWrite(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.st.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for id, u := range s.st.users {
		if id != user.ID && (u.Email == user.Email || u.Username == user.Username) {
			return storage.ErrDuplicate
		}
	}
	cur.Username = user.Username
	cur.Email = user.Email
	cur.ProfilePicture = user.ProfilePicture
	cur.UpdatedAt = time.Now()
	s.st.users[user.ID] = cur
	return nil
}

func (s *Store) findUser(match func(model.User) bool) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.st.users {
		if match(u) {
			return &u
		}
	}
	return nil
}
