package fakeuserrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/provenid/go-token-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users map[string]*users.User // keyed by username
	lock  sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (r *FakeUserRepo) Upsert(user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.Username] = user
	return nil
}

func (r *FakeUserRepo) Delete(username string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.users, username)
	return nil
}

func (r *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	user, ok := r.users[username]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (r *FakeUserRepo) GetByID(id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, users.ErrNotFound
}

func (r *FakeUserRepo) List(offset, limit int) ([]*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := make([]*users.User, 0, len(r.users))
	for _, v := range r.users {
		all = append(all, v)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Username < all[j].Username
	})

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}
