package repository

import (
	"onboarding_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindByUser(userID uint) (*model.OnboardingProgress, error) {
	var p model.OnboardingProgress
	if err := r.DB.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) Create(p *model.OnboardingProgress) error {
	return r.DB.Create(p).Error
}

func (r *ProgressRepository) Update(p *model.OnboardingProgress) error {
	return r.DB.Save(p).Error
}

func (r *ProgressRepository) DeleteByUser(userID uint) error {
	return r.DB.Where("user_id = ?", userID).Delete(&model.OnboardingProgress{}).Error
}

// ListCompleted 所有已完成全部培训的进度行（后台报表用）。
func (r *ProgressRepository) ListCompleted() ([]model.OnboardingProgress, error) {
	var rows []model.OnboardingProgress
	err := r.DB.Where("completed_at IS NOT NULL").Find(&rows).Error
	return rows, err
}
