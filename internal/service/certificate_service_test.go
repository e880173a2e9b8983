package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"onboarding_backend/internal/model"

	"gorm.io/gorm"
)

type fakeCertStore struct {
	certs []model.Certificate
}

func (f *fakeCertStore) Create(c *model.Certificate) error {
	f.certs = append(f.certs, *c)
	return nil
}

func (f *fakeCertStore) FindByID(id string) (*model.Certificate, error) {
	for i := range f.certs {
		if f.certs[i].ID == id {
			return &f.certs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCertStore) FindLatestByUser(userID uint) (*model.Certificate, error) {
	for i := len(f.certs) - 1; i >= 0; i-- {
		if f.certs[i].UserID == userID {
			return &f.certs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCertStore) ListByUser(userID uint) ([]model.Certificate, error) {
	var out []model.Certificate
	for _, c := range f.certs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeUploader struct {
	uploads  int
	lastName string
	lastBody string
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	body, _ := io.ReadAll(reader)
	f.uploads++
	f.lastName = filename
	f.lastBody = string(body)
	return "/uploads/" + filename, nil
}

func TestIssueCertificate(t *testing.T) {
	store := &fakeCertStore{}
	uploader := &fakeUploader{}
	svc := NewCertificateService(store, uploader, "员工入职培训")

	cert, err := svc.Issue(1, "张三", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cert.ID == "" {
		t.Fatal("certificate must get an id")
	}
	if cert.Reissued {
		t.Fatal("first issue must not be marked as reissue")
	}
	if uploader.uploads != 1 {
		t.Fatalf("uploads = %d, want 1", uploader.uploads)
	}
	if !strings.Contains(uploader.lastBody, "张三") || !strings.Contains(uploader.lastBody, "员工入职培训") {
		t.Fatal("rendered certificate must contain the user and course name")
	}
	if cert.URL == "" {
		t.Fatal("certificate URL must point at the stored file")
	}
}

func TestIssueCertificateIdempotent(t *testing.T) {
	store := &fakeCertStore{}
	svc := NewCertificateService(store, &fakeUploader{}, "员工入职培训")

	first, err := svc.Issue(1, "张三", false)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(1, "张三", false)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat issue must return the existing certificate")
	}
	if len(store.certs) != 1 {
		t.Fatalf("stored certs = %d, want 1", len(store.certs))
	}
}

func TestReissueCertificate(t *testing.T) {
	store := &fakeCertStore{}
	svc := NewCertificateService(store, &fakeUploader{}, "员工入职培训")

	first, err := svc.Issue(1, "张三", false)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(1, "张三", true)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("reissue must mint a new certificate")
	}
	if !second.Reissued {
		t.Fatal("reissue must be flagged")
	}
	if len(store.certs) != 2 {
		t.Fatalf("stored certs = %d, want 2", len(store.certs))
	}
}

func TestIssueWithoutUploader(t *testing.T) {
	store := &fakeCertStore{}
	svc := NewCertificateService(store, nil, "员工入职培训")

	cert, err := svc.Issue(1, "张三", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if cert.URL != "" {
		t.Fatal("without storage the URL must stay empty")
	}
}
