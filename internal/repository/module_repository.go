package repository

import (
	"onboarding_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) FindAll() ([]model.OnboardingModule, error) {
	var modules []model.OnboardingModule
	err := r.DB.Order("number ASC").Find(&modules).Error
	return modules, err
}

// FindByNumber 按模块编号取完整内容（幻灯片、清单、题目）。
func (r *ModuleRepository) FindByNumber(number int) (*model.OnboardingModule, error) {
	var m model.OnboardingModule
	err := r.DB.Where("number = ?", number).
		Preload("Slides", func(db *gorm.DB) *gorm.DB { return db.Order("module_slides.order ASC") }).
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("checklist_items.order ASC") }).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("quiz_questions.order ASC") }).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ModuleRepository) FindByID(id uint) (*model.OnboardingModule, error) {
	var m model.OnboardingModule
	if err := r.DB.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ModuleRepository) Create(m *model.OnboardingModule) error {
	return r.DB.Create(m).Error
}

func (r *ModuleRepository) Update(m *model.OnboardingModule) error {
	return r.DB.Save(m).Error
}

func (r *ModuleRepository) Delete(id uint) error {
	return r.DB.Delete(&model.OnboardingModule{}, id).Error
}

func (r *ModuleRepository) Count() (int64, error) {
	var count int64
	err := r.DB.Model(&model.OnboardingModule{}).Count(&count).Error
	return count, err
}

func (r *ModuleRepository) CreateSlide(s *model.ModuleSlide) error {
	return r.DB.Create(s).Error
}

func (r *ModuleRepository) UpdateSlide(s *model.ModuleSlide) error {
	return r.DB.Save(s).Error
}

func (r *ModuleRepository) DeleteSlide(id uint) error {
	return r.DB.Delete(&model.ModuleSlide{}, id).Error
}

func (r *ModuleRepository) CreateChecklistItem(i *model.ChecklistItem) error {
	return r.DB.Create(i).Error
}

func (r *ModuleRepository) UpdateChecklistItem(i *model.ChecklistItem) error {
	return r.DB.Save(i).Error
}

func (r *ModuleRepository) DeleteChecklistItem(id uint) error {
	return r.DB.Delete(&model.ChecklistItem{}, id).Error
}

func (r *ModuleRepository) CreateQuestion(q *model.QuizQuestion) error {
	return r.DB.Create(q).Error
}

func (r *ModuleRepository) UpdateQuestion(q *model.QuizQuestion) error {
	return r.DB.Save(q).Error
}

func (r *ModuleRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.QuizQuestion{}, id).Error
}

func (r *ModuleRepository) FindQuestionsByModuleID(moduleID uint) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("module_id = ?", moduleID).Order("quiz_questions.order ASC").Find(&qs).Error
	return qs, err
}
