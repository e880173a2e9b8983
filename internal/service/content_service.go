package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/repository"
	"onboarding_backend/internal/util"
	"onboarding_backend/pkg/logger"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// moduleStore 内容服务依赖的模块仓储操作，由 repository.ModuleRepository 实现。
type moduleStore interface {
	FindAll() ([]model.OnboardingModule, error)
	FindByNumber(number int) (*model.OnboardingModule, error)
	FindByID(id uint) (*model.OnboardingModule, error)
	Create(m *model.OnboardingModule) error
	Update(m *model.OnboardingModule) error
	Delete(id uint) error
	CreateSlide(s *model.ModuleSlide) error
	UpdateSlide(s *model.ModuleSlide) error
	DeleteSlide(id uint) error
	CreateChecklistItem(i *model.ChecklistItem) error
	UpdateChecklistItem(i *model.ChecklistItem) error
	DeleteChecklistItem(id uint) error
	CreateQuestion(q *model.QuizQuestion) error
	UpdateQuestion(q *model.QuizQuestion) error
	DeleteQuestion(id uint) error
}

var _ moduleStore = (*repository.ModuleRepository)(nil)

// ContentService 培训内容管理：模块、幻灯片、清单、题目与模块视频。
type ContentService struct {
	Modules moduleStore
	Storage *StorageService
}

func NewContentService(moduleRepo moduleStore, storage *StorageService) *ContentService {
	return &ContentService{
		Modules: moduleRepo,
		Storage: storage,
	}
}

func (s *ContentService) ListModules() ([]model.OnboardingModule, error) {
	return s.Modules.FindAll()
}

// GetModuleForUser 员工端读取模块内容。unlockedThrough 为进度行的当前模块，
// 编号更大的模块尚未解锁。
func (s *ContentService) GetModuleForUser(number, unlockedThrough int) (*model.OnboardingModule, error) {
	if number > unlockedThrough {
		return nil, util.ErrModuleLocked
	}

	m, err := s.Modules.FindByNumber(number)
	if err != nil {
		return nil, util.ErrModuleNotFound
	}
	if !m.Published {
		return nil, util.ErrModuleNotFound
	}
	return m, nil
}

// GetModuleAdmin 管理端读取模块完整内容（含未发布模块）。
func (s *ContentService) GetModuleAdmin(number int) (*model.OnboardingModule, error) {
	m, err := s.Modules.FindByNumber(number)
	if err != nil {
		return nil, util.ErrModuleNotFound
	}
	return m, nil
}

func (s *ContentService) CreateModule(m *model.OnboardingModule) error {
	return s.Modules.Create(m)
}

func (s *ContentService) UpdateModule(m *model.OnboardingModule) error {
	existing, err := s.Modules.FindByID(m.ID)
	if err != nil {
		return util.ErrModuleNotFound
	}

	existing.Title = m.Title
	existing.Description = m.Description
	existing.Published = m.Published
	if m.Number > 0 {
		existing.Number = m.Number
	}
	return s.Modules.Update(existing)
}

func (s *ContentService) DeleteModule(id uint) error {
	return s.Modules.Delete(id)
}

func (s *ContentService) AddSlide(slide *model.ModuleSlide) error {
	return s.Modules.CreateSlide(slide)
}

func (s *ContentService) UpdateSlide(slide *model.ModuleSlide) error {
	return s.Modules.UpdateSlide(slide)
}

func (s *ContentService) DeleteSlide(id uint) error {
	return s.Modules.DeleteSlide(id)
}

func (s *ContentService) AddChecklistItem(item *model.ChecklistItem) error {
	return s.Modules.CreateChecklistItem(item)
}

func (s *ContentService) UpdateChecklistItem(item *model.ChecklistItem) error {
	return s.Modules.UpdateChecklistItem(item)
}

func (s *ContentService) DeleteChecklistItem(id uint) error {
	return s.Modules.DeleteChecklistItem(id)
}

func (s *ContentService) AddQuestion(q *model.QuizQuestion) error {
	return s.Modules.CreateQuestion(q)
}

func (s *ContentService) UpdateQuestion(q *model.QuizQuestion) error {
	return s.Modules.UpdateQuestion(q)
}

func (s *ContentService) DeleteQuestion(id uint) error {
	return s.Modules.DeleteQuestion(id)
}

// UploadModuleVideo 上传模块介绍视频：先落到临时文件探测时长，再写入对象存储。
func (s *ContentService) UploadModuleVideo(ctx context.Context, moduleID uint, file *multipart.FileHeader) (*model.OnboardingModule, error) {
	m, err := s.Modules.FindByID(moduleID)
	if err != nil {
		return nil, util.ErrModuleNotFound
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := false
	for _, e := range util.AllowedVideoExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("不支持的视频格式: %s", ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 按文件头深度校验，不信任扩展名
	mime, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream})
	if err != nil {
		return nil, fmt.Errorf("视频内容校验失败: %s", mime)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "module-video-*"+ext)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	info, err := util.GetVideoInfo(tmpPath)
	if err != nil {
		// 探测失败不阻塞上传，时长缺省为 0
		logger.Log.Warn("video probe failed", zap.Uint("moduleId", moduleID), zap.Error(err))
		info = &util.VideoInfo{}
	}

	objectName := fmt.Sprintf("modules/%d/%s", m.Number, filepath.Base(file.Filename))
	url, err := s.Storage.UploadFile(ctx, objectName, tmpPath, util.MimeVideo+strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, err
	}

	m.VideoURL = url
	m.VideoDuration = info.Duration

	// 从第 1 秒抓帧做封面图，失败不阻塞上传
	if thumbURL, err := s.generateCover(ctx, m.Number, tmpPath); err != nil {
		logger.Log.Warn("cover generation failed", zap.Uint("moduleId", moduleID), zap.Error(err))
	} else {
		m.ThumbnailURL = thumbURL
	}

	if err := s.Modules.Update(m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *ContentService) generateCover(ctx context.Context, moduleNumber int, videoPath string) (string, error) {
	thumbPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_cover.jpg"
	defer os.Remove(thumbPath)

	if err := util.GenerateThumbnail(videoPath, thumbPath, "00:00:01"); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("modules/%d/cover.jpg", moduleNumber)
	return s.Storage.UploadFile(ctx, objectName, thumbPath, util.MimeImage+"jpeg")
}
