package service

import (
	"testing"

	"onboarding_backend/internal/model"
	"onboarding_backend/internal/util"

	"gorm.io/gorm"
)

type fakeModuleStore struct {
	moduleStore
	byNumber map[int]*model.OnboardingModule
}

func (f *fakeModuleStore) FindByNumber(number int) (*model.OnboardingModule, error) {
	m, ok := f.byNumber[number]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func newContentService(modules map[int]*model.OnboardingModule) *ContentService {
	return NewContentService(&fakeModuleStore{byNumber: modules}, nil)
}

func TestGetModuleAdminMissingModule(t *testing.T) {
	svc := newContentService(nil)

	_, err := svc.GetModuleAdmin(9)
	if err != util.ErrModuleNotFound {
		t.Fatalf("err = %v, want util.ErrModuleNotFound", err)
	}
}

func TestGetModuleAdminIncludesUnpublished(t *testing.T) {
	svc := newContentService(map[int]*model.OnboardingModule{
		2: {Number: 2, Title: "安全规范", Published: false},
	})

	m, err := svc.GetModuleAdmin(2)
	if err != nil {
		t.Fatalf("GetModuleAdmin: %v", err)
	}
	if m.Title != "安全规范" {
		t.Fatalf("title = %q", m.Title)
	}
}

func TestGetModuleForUserLocked(t *testing.T) {
	svc := newContentService(map[int]*model.OnboardingModule{
		3: {Number: 3, Published: true},
	})

	if _, err := svc.GetModuleForUser(3, 2); err != util.ErrModuleLocked {
		t.Fatalf("err = %v, want util.ErrModuleLocked", err)
	}
}

func TestGetModuleForUserHidesUnpublished(t *testing.T) {
	svc := newContentService(map[int]*model.OnboardingModule{
		1: {Number: 1, Published: false},
	})

	if _, err := svc.GetModuleForUser(1, 1); err != util.ErrModuleNotFound {
		t.Fatalf("err = %v, want util.ErrModuleNotFound", err)
	}
}
