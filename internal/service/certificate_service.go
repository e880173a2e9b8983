package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"onboarding_backend/internal/model"
	"onboarding_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type certificateStore interface {
	Create(c *model.Certificate) error
	FindByID(id string) (*model.Certificate, error)
	FindLatestByUser(userID uint) (*model.Certificate, error)
	ListByUser(userID uint) ([]model.Certificate, error)
}

type fileUploader interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

// CertificateService 结业证书签发。每个用户至多一张有效证书：
// 重复调用返回已有证书，补发需要显式 reissue 并留痕。
type CertificateService struct {
	Certs      certificateStore
	uploader   fileUploader
	courseName string
}

func NewCertificateService(certRepo certificateStore, uploader fileUploader, courseName string) *CertificateService {
	return &CertificateService{
		Certs:      certRepo,
		uploader:   uploader,
		courseName: courseName,
	}
}

// Issue 签发证书。已有证书且未要求补发时原样返回既有记录（幂等）。
func (s *CertificateService) Issue(userID uint, userName string, reissue bool) (*model.Certificate, error) {
	existing, err := s.Certs.FindLatestByUser(userID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if existing != nil && err == nil && !reissue {
		return existing, nil
	}

	cert := &model.Certificate{
		UserID:      userID,
		UserName:    userName,
		CourseName:  s.courseName,
		CompletedAt: time.Now(),
		Reissued:    reissue && existing != nil,
	}
	cert.ID = model.GenerateUUID()

	url, err := s.renderAndStore(cert)
	if err != nil {
		// 渲染或上传失败不阻塞签发，URL 留空可以事后补
		logger.Log.Error("certificate render failed", zap.String("certId", cert.ID), zap.Error(err))
	}
	cert.URL = url

	if err := s.Certs.Create(cert); err != nil {
		return nil, err
	}

	if cert.Reissued {
		logger.Log.Info("certificate reissued",
			zap.Uint("userId", userID),
			zap.String("previous", existing.ID),
			zap.String("certId", cert.ID))
	}

	return cert, nil
}

func (s *CertificateService) Get(id string) (*model.Certificate, error) {
	return s.Certs.FindByID(id)
}

func (s *CertificateService) ListForUser(userID uint) ([]model.Certificate, error) {
	return s.Certs.ListByUser(userID)
}

// renderAndStore 渲染证书页面并写入对象存储，返回可访问 URL。
func (s *CertificateService) renderAndStore(cert *model.Certificate) (string, error) {
	if s.uploader == nil {
		return "", nil
	}

	html := fmt.Sprintf(certificateTemplate,
		cert.UserName,
		cert.CourseName,
		cert.CompletedAt.Format("2006年01月02日"),
		cert.ID,
	)

	reader := bytes.NewReader([]byte(html))
	filename := fmt.Sprintf("certificates/%s.html", cert.ID)
	return s.uploader.Upload(context.Background(), filename, reader, int64(reader.Len()), "text/html; charset=utf-8")
}

const certificateTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>结业证书</title>
</head>
<body>
<div class="certificate">
  <h1>结业证书</h1>
  <p>兹证明 <strong>%s</strong> 已完成 <strong>%s</strong> 全部培训模块并通过考核。</p>
  <p>完成日期：%s</p>
  <p class="serial">证书编号：%s</p>
</div>
</body>
</html>
`
