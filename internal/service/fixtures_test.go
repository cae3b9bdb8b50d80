package service

import (
	"classhub_backend/internal/model"
	inmemdb "classhub_backend/internal/repository/inmem"
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var (
	teacher      = model.Principal{UserID: 1, Role: model.Teacher}
	otherTeacher = model.Principal{UserID: 2, Role: model.Teacher}
	admin        = model.Principal{UserID: 3, Role: model.Admin}
	student      = model.Principal{UserID: 10, Role: model.Student}
	otherStudent = model.Principal{UserID: 11, Role: model.Student}
	parent       = model.Principal{UserID: 20, Role: model.Parent}
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// clock is a settable Clock for tests.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: baseTime}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type memObjectStore struct {
	objects map[string][]byte
	fail    bool
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (m *memObjectStore) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) (string, error) {
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return m.URL(key), nil
}

func (m *memObjectStore) PutFile(_ context.Context, key string, _ string, _ string) (string, error) {
	if m.fail {
		return "", errors.New("bucket unavailable")
	}
	m.objects[key] = nil
	return m.URL(key), nil
}

func (m *memObjectStore) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memObjectStore) URL(key string) string {
	return "https://files.test/" + key
}

func newStores() *inmemdb.Stores {
	return inmemdb.NewStores(inmemdb.NewDB())
}

func intPtr(v int) *int {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}

func question(prompt string, correct int, options ...string) model.QuizQuestion {
	return model.QuizQuestion{Prompt: prompt, Options: options, CorrectAnswer: intPtr(correct)}
}

func sampleQuizSpec() QuizSpec {
	return QuizSpec{
		Title:   "Fractions",
		Subject: "math",
		Questions: []model.QuizQuestion{
			question("1/2 + 1/4", 1, "1/6", "3/4", "2/6"),
			question("2/4 simplified", 0, "1/2", "2/2"),
			question("3/3", 2, "0", "1/3", "1"),
		},
	}
}
