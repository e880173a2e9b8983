package repository

import (
	"onboarding_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Create(c *model.Certificate) error {
	return r.DB.Create(c).Error
}

func (r *CertificateRepository) FindByID(id string) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.DB.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindLatestByUser 用户最近一张证书，没有时返回 gorm.ErrRecordNotFound。
func (r *CertificateRepository) FindLatestByUser(userID uint) (*model.Certificate, error) {
	var c model.Certificate
	if err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepository) ListByUser(userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&certs).Error
	return certs, err
}
