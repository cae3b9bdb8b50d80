package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

type ModuleSpec struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required,notblank,max=100"`
	GradeLevel  string `json:"gradeLevel" validate:"max=50"`
}

type MaterialSpec struct {
	Title string             `json:"title" validate:"required,notblank,max=255"`
	Kind  model.MaterialKind `json:"kind" validate:"required,oneof=document link"`
	URL   string             `json:"url" validate:"required,url,max=512"`
}

type ModuleService struct {
	Modules ModuleStore
	Storage ObjectStore
	Probe   func(path string) (*util.VideoInfo, error)
	Thumb   func(videoPath, thumbPath, offset string) error
	Now     Clock
}

func NewModuleService(modules ModuleStore, storage ObjectStore) *ModuleService {
	return &ModuleService{
		Modules: modules,
		Storage: storage,
		Probe:   util.ProbeVideo,
		Thumb:   util.GenerateThumbnail,
		Now:     time.Now,
	}
}

func (s *ModuleService) Create(ctx context.Context, p model.Principal, spec ModuleSpec) (*model.LearningModule, error) {
	if err := requireAuthor(p); err != nil {
		return nil, err
	}
	if err := util.Validate(spec); err != nil {
		return nil, err
	}

	m := &model.LearningModule{
		TeacherID:   p.UserID,
		Title:       strings.TrimSpace(spec.Title),
		Description: spec.Description,
		Subject:     strings.TrimSpace(spec.Subject),
		GradeLevel:  spec.GradeLevel,
		Status:      model.ModuleDraft,
	}
	if err := s.Modules.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update edits module metadata. Archived modules are frozen.
func (s *ModuleService) Update(ctx context.Context, p model.Principal, id uint, spec ModuleSpec) (*model.LearningModule, error) {
	m, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if m.Status == model.ModuleArchived {
		return nil, invalidTransition("module", string(m.Status), "edit")
	}
	if err := util.Validate(spec); err != nil {
		return nil, err
	}

	m.Title = strings.TrimSpace(spec.Title)
	m.Description = spec.Description
	m.Subject = strings.TrimSpace(spec.Subject)
	m.GradeLevel = spec.GradeLevel
	if err := s.Modules.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ModuleService) Publish(ctx context.Context, p model.Principal, id uint) (*model.LearningModule, error) {
	return s.transition(ctx, p, id, model.ModuleDraft, model.ModulePublished, "publish")
}

func (s *ModuleService) Archive(ctx context.Context, p model.Principal, id uint) (*model.LearningModule, error) {
	return s.transition(ctx, p, id, model.ModulePublished, model.ModuleArchived, "archive")
}

func (s *ModuleService) transition(ctx context.Context, p model.Principal, id uint, from, to model.ModuleStatus, action string) (*model.LearningModule, error) {
	m, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if m.Status != from {
		return nil, invalidTransition("module", string(m.Status), action)
	}

	ok, err := s.Modules.UpdateStatus(ctx, id, from, to, s.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace("module")
	}
	return s.Modules.FindByID(ctx, id)
}

func (s *ModuleService) Delete(ctx context.Context, p model.Principal, id uint) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	return s.Modules.Delete(ctx, id)
}

func (s *ModuleService) Get(ctx context.Context, p model.Principal, id uint) (*model.LearningModule, error) {
	m, err := s.Modules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Learner() && m.Status == model.ModuleDraft {
		return nil, util.ErrNotFound
	}
	return m, nil
}

func (s *ModuleService) List(ctx context.Context, p model.Principal, q ContentQuery) ([]model.LearningModule, int64, error) {
	q.ModuleID = 0
	return s.Modules.List(ctx, q.filter(p, string(model.ModulePublished)))
}

func (s *ModuleService) AddMaterial(ctx context.Context, p model.Principal, id uint, spec MaterialSpec) (*model.ModuleMaterial, error) {
	m, err := s.editable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := util.Validate(spec); err != nil {
		return nil, err
	}

	mat := &model.ModuleMaterial{
		ModuleID: m.ID,
		Title:    strings.TrimSpace(spec.Title),
		Kind:     spec.Kind,
		URL:      spec.URL,
	}
	if err := s.Modules.AddMaterial(ctx, mat); err != nil {
		return nil, err
	}
	return mat, nil
}

// AttachVideo stores an uploaded lesson video and records its probed duration
// and resolution on a new material.
func (s *ModuleService) AttachVideo(ctx context.Context, p model.Principal, id uint, title string, up Upload) (*model.ModuleMaterial, error) {
	m, err := s.editable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !util.HasExtension(up.Filename, util.AllowedVideoExtensions) {
		return nil, util.Validationf("unsupported video format")
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(up.Filename), filepath.Ext(up.Filename))
	}

	tmpDir, err := os.MkdirTemp("", "classhub-video-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, "source"+strings.ToLower(filepath.Ext(up.Filename)))
	if err := writeFile(localPath, up.Reader); err != nil {
		return nil, err
	}

	info, err := s.Probe(localPath)
	if err != nil {
		logger.Log.Warn("video probe failed", zap.Uint("moduleId", m.ID), zap.Error(err))
		return nil, util.Validationf("file is not a readable video")
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = util.MimeVideo + strings.TrimPrefix(strings.ToLower(filepath.Ext(up.Filename)), ".")
	}
	key := ObjectKey("videos", up.Filename)
	url, err := s.Storage.PutFile(ctx, key, localPath, contentType)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	mat := &model.ModuleMaterial{
		ModuleID: m.ID,
		Title:    strings.TrimSpace(title),
		Kind:     model.MaterialVideo,
		URL:      url,
		Duration: info.Duration,
		Width:    info.Width,
		Height:   info.Height,
		Size:     info.Size,
	}

	thumbPath := filepath.Join(tmpDir, "thumb.jpg")
	if err := s.Thumb(localPath, thumbPath, "00:00:01"); err != nil {
		logger.Log.Warn("thumbnail failed", zap.Uint("moduleId", m.ID), zap.Error(err))
	} else if thumbURL, err := s.Storage.PutFile(ctx, strings.TrimSuffix(key, filepath.Ext(key))+".jpg", thumbPath, "image/jpeg"); err == nil {
		mat.Thumb = thumbURL
	}

	if err := s.Modules.AddMaterial(ctx, mat); err != nil {
		return nil, err
	}
	return mat, nil
}

func (s *ModuleService) owned(ctx context.Context, p model.Principal, id uint) (*model.LearningModule, error) {
	m, err := s.Modules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, m.TeacherID, "module"); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ModuleService) editable(ctx context.Context, p model.Principal, id uint) (*model.LearningModule, error) {
	m, err := s.owned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if m.Status == model.ModuleArchived {
		return nil, invalidTransition("module", string(m.Status), "add material to")
	}
	return m, nil
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
