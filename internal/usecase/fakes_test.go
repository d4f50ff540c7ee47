package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/GoArmGo/PlacesApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// memStore держит места и пользователей в памяти и повторяет
// транзакционное поведение gorm-хранилища.
type memStore struct {
	mu     sync.Mutex
	places map[uuid.UUID]domain.Place
	users  map[uuid.UUID]domain.User

	getErr    error
	createErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{
		places: make(map[uuid.UUID]domain.Place),
		users:  make(map[uuid.UUID]domain.User),
	}
}

func (s *memStore) addUser(name, email string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.New(), Name: name, Email: email, PlaceIDs: []string{}}
	s.users[u.ID] = u
	return u
}

func (s *memStore) GetPlaceByID(_ context.Context, id uuid.UUID) (*domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.places[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) GetPlaceWithCreator(ctx context.Context, id uuid.UUID) (*domain.Place, error) {
	p, err := s.GetPlaceByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[p.CreatorID]; ok {
		p.Creator = &u
	}
	return p, nil
}

func (s *memStore) ListPlacesByCreator(_ context.Context, creatorID uuid.UUID) ([]domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Place
	for _, p := range s.places {
		if p.CreatorID == creatorID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) CreatePlace(_ context.Context, place domain.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	u, ok := s.users[place.CreatorID]
	if !ok {
		return ports.ErrUserNotFound
	}
	s.places[place.ID] = place
	u.PlaceIDs = append(u.PlaceIDs, place.ID.String())
	s.users[u.ID] = u
	return nil
}

func (s *memStore) UpdatePlace(_ context.Context, place domain.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[place.ID] = place
	return nil
}

func (s *memStore) DeletePlace(_ context.Context, place domain.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.places, place.ID)
	u := s.users[place.CreatorID]
	kept := u.PlaceIDs[:0]
	for _, id := range u.PlaceIDs {
		if id != place.ID.String() {
			kept = append(kept, id)
		}
	}
	u.PlaceIDs = kept
	s.users[u.ID] = u
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ports.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memStore) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

type fakeGeocoder struct {
	loc   domain.Location
	err   error
	calls int
}

func (g *fakeGeocoder) Resolve(_ context.Context, _ string) (domain.Location, error) {
	g.calls++
	return g.loc, g.err
}

type fakeRemover struct {
	removed []string
	err     error
}

func (r *fakeRemover) Remove(_ context.Context, ref string) error {
	if r.err != nil {
		return r.err
	}
	r.removed = append(r.removed, ref)
	return nil
}

type fakeCache struct {
	items   map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type fakePublisher struct {
	published []payloads.ImageCleanupPayload
}

func (p *fakePublisher) PublishImageCleanup(_ context.Context, payload payloads.ImageCleanupPayload) error {
	p.published = append(p.published, payload)
	return nil
}

type fakeTokens struct {
	err error
}

func (f fakeTokens) Issue(userID uuid.UUID, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID.String(), nil
}

var errBoom = errors.New("boom")
