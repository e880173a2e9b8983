package controller

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"onboarding_backend/internal/model"
	"onboarding_backend/internal/repository"
	"onboarding_backend/internal/service"
	"onboarding_backend/internal/util"
	"onboarding_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeModuleStore 仅覆盖用到的查询，其余方法继承零值仓储（不会被调用）。
type fakeModuleStore struct {
	*repository.ModuleRepository
	byNumber map[int]*model.OnboardingModule
}

func (f *fakeModuleStore) FindByNumber(number int) (*model.OnboardingModule, error) {
	m, ok := f.byNumber[number]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func adminGetModuleContext(number string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/modules/"+number, nil)
	ctx.Params = gin.Params{{Key: "number", Value: number}}
	ctx.Set("user", &util.Claims{UserID: 1, Role: model.Admin})
	return ctx, w
}

func TestGetModuleAdminMissing(t *testing.T) {
	svc := service.NewContentService(&fakeModuleStore{byNumber: nil}, nil)
	ctrl := NewContentController(svc, nil)

	ctx, w := adminGetModuleContext("9")
	ctrl.GetModule(ctx)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestGetModuleAdminSeesUnpublished(t *testing.T) {
	svc := service.NewContentService(&fakeModuleStore{byNumber: map[int]*model.OnboardingModule{
		2: {Number: 2, Title: "安全规范", Published: false},
	}}, nil)
	ctrl := NewContentController(svc, nil)

	ctx, w := adminGetModuleContext("2")
	ctrl.GetModule(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
