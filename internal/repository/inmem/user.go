package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"fmt"
	"strings"
	"time"
)

type UserRepository struct {
	db *DB
}

func (repo *UserRepository) Create(_ context.Context, user *model.User) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: email already exists", util.ErrConflict)
		}
	}
	repo.db.stamp(&user.BaseModel)
	cp := *user
	repo.db.users[user.ID] = &cp
	return nil
}

func (repo *UserRepository) FindByID(_ context.Context, id uint) (*model.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if u, ok := repo.db.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, u := range repo.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, util.ErrNotFound
}

func (repo *UserRepository) FindByIDs(_ context.Context, ids []uint) ([]model.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := repo.db.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (repo *UserRepository) UpdateLastLogin(_ context.Context, id uint, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if u, ok := repo.db.users[id]; ok {
		u.LastLogin = timePtr(at)
	}
	return nil
}
