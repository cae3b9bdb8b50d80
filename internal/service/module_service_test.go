package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModuleFixture() (*ModuleService, *memObjectStore) {
	storage := newMemObjectStore()
	svc := NewModuleService(newStores().Modules, storage)
	svc.Now = newClock().Now
	svc.Probe = func(path string) (*util.VideoInfo, error) {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return &util.VideoInfo{Duration: 61.5, Width: 1280, Height: 720, Size: 4}, nil
	}
	svc.Thumb = func(_, thumbPath, _ string) error {
		return os.WriteFile(thumbPath, []byte("jpg"), 0o644)
	}
	return svc, storage
}

func TestModuleService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newModuleFixture()

	m, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Cells", Subject: "biology"})
	require.NoError(t, err)
	assert.Equal(t, model.ModuleDraft, m.Status)

	_, err = svc.Archive(ctx, teacher, m.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState, "only published modules are archived")

	m, err = svc.Publish(ctx, teacher, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModulePublished, m.Status)

	m, err = svc.Update(ctx, teacher, m.ID, ModuleSpec{Title: "Cells and tissues", Subject: "biology"})
	require.NoError(t, err, "published modules stay editable")
	assert.Equal(t, "Cells and tissues", m.Title)

	m, err = svc.Archive(ctx, teacher, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModuleArchived, m.Status)

	_, err = svc.Update(ctx, teacher, m.ID, ModuleSpec{Title: "x", Subject: "y"})
	assert.ErrorIs(t, err, util.ErrInvalidState)
	_, err = svc.AddMaterial(ctx, teacher, m.ID, MaterialSpec{Title: "Notes", Kind: model.MaterialLink, URL: "https://example.com/cells"})
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestModuleService_AddMaterial(t *testing.T) {
	ctx := context.Background()
	svc, _ := newModuleFixture()
	m, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Cells", Subject: "biology"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		p       model.Principal
		spec    MaterialSpec
		wantErr error
	}{
		{"link", teacher, MaterialSpec{Title: "Reading", Kind: model.MaterialLink, URL: "https://example.com/read"}, nil},
		{"video kind needs an upload", teacher, MaterialSpec{Title: "Clip", Kind: model.MaterialVideo, URL: "https://example.com/v.mp4"}, util.ErrValidation},
		{"bad url", teacher, MaterialSpec{Title: "Reading", Kind: model.MaterialDocument, URL: "not a url"}, util.ErrValidation},
		{"not the owner", otherTeacher, MaterialSpec{Title: "Reading", Kind: model.MaterialLink, URL: "https://example.com/read"}, util.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat, err := svc.AddMaterial(ctx, tt.p, m.ID, tt.spec)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, m.ID, mat.ModuleID)
		})
	}

	got, err := svc.Get(ctx, teacher, m.ID)
	require.NoError(t, err)
	assert.Len(t, got.Materials, 1)
}

func TestModuleService_AttachVideo(t *testing.T) {
	ctx := context.Background()
	svc, storage := newModuleFixture()
	m, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Cells", Subject: "biology"})
	require.NoError(t, err)

	mat, err := svc.AttachVideo(ctx, teacher, m.ID, "", Upload{
		Filename: "Mitosis.MP4", Size: 4, Reader: strings.NewReader("mp4!"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Mitosis", mat.Title)
	assert.Equal(t, model.MaterialVideo, mat.Kind)
	assert.Equal(t, 61.5, mat.Duration)
	assert.Equal(t, 1280, mat.Width)
	assert.True(t, strings.HasPrefix(mat.URL, "https://files.test/videos/"))
	assert.True(t, strings.HasSuffix(mat.Thumb, ".jpg"))
	assert.Len(t, storage.objects, 2)
}

func TestModuleService_AttachVideoRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newModuleFixture()
	m, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Cells", Subject: "biology"})
	require.NoError(t, err)

	_, err = svc.AttachVideo(ctx, teacher, m.ID, "x", Upload{Filename: "notes.txt", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrValidation)

	svc.Probe = func(string) (*util.VideoInfo, error) { return nil, errors.New("moov atom not found") }
	_, err = svc.AttachVideo(ctx, teacher, m.ID, "x", Upload{Filename: "broken.mp4", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestModuleService_AttachVideoWithoutThumbnail(t *testing.T) {
	ctx := context.Background()
	svc, storage := newModuleFixture()
	svc.Thumb = func(string, string, string) error { return errors.New("ffmpeg missing") }
	m, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Cells", Subject: "biology"})
	require.NoError(t, err)

	mat, err := svc.AttachVideo(ctx, teacher, m.ID, "Intro", Upload{Filename: "intro.webm", Reader: strings.NewReader("webm")})
	require.NoError(t, err)
	assert.Empty(t, mat.Thumb)
	assert.Len(t, storage.objects, 1)
}

func TestModuleService_LearnersSeePublishedOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newModuleFixture()
	draft, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Draft", Subject: "biology"})
	require.NoError(t, err)
	live, err := svc.Create(ctx, teacher, ModuleSpec{Title: "Live", Subject: "biology"})
	require.NoError(t, err)
	_, err = svc.Publish(ctx, teacher, live.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, parent, draft.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	list, total, err := svc.List(ctx, student, ContentQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Live", list[0].Title)
}
