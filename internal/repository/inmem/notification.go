package inmemdb

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"sort"
	"time"
)

type NotificationRepository struct {
	db *DB
}

func (repo *NotificationRepository) Create(_ context.Context, n *model.Notification) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if n.ID == "" {
		n.ID = model.GenerateUUID()
	}
	now := repo.db.now()
	n.CreatedAt, n.UpdatedAt = now, now
	cp := *n
	repo.db.notifications[n.ID] = &cp
	return nil
}

func (repo *NotificationRepository) FindByID(_ context.Context, id string, userID uint) (*model.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.notifications[id]; ok && n.UserID == userID {
		cp := *n
		return &cp, nil
	}
	return nil, util.ErrNotFound
}

func (repo *NotificationRepository) ListByUser(_ context.Context, userID uint, unreadOnly bool, p, limit int) ([]model.Notification, int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := []model.Notification{}
	for _, n := range repo.db.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, p, limit), int64(len(out)), nil
}

func (repo *NotificationRepository) MarkRead(_ context.Context, id string, userID uint, at time.Time) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = timePtr(at)
	}
	return true, nil
}

func (repo *NotificationRepository) MarkAllRead(_ context.Context, userID uint, at time.Time) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var count int64
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = timePtr(at)
			count++
		}
	}
	return count, nil
}

func (repo *NotificationRepository) CountUnread(_ context.Context, userID uint) (int64, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int64
	for _, n := range repo.db.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}
