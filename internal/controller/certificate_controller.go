package controller

import (
	"net/http"
	"onboarding_backend/internal/service"
	"onboarding_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	Service    *service.CertificateService
	Onboarding *service.OnboardingService
}

func NewCertificateController(svc *service.CertificateService, onboarding *service.OnboardingService) *CertificateController {
	return &CertificateController{Service: svc, Onboarding: onboarding}
}

// GenerateCertificateRequest 证书签发请求
type GenerateCertificateRequest struct {
	UserID   uint   `json:"userId" binding:"required"`
	UserName string `json:"userName" binding:"required"`
	Reissue  bool   `json:"reissue"`
}

// @Summary 签发结业证书
// @Tags 证书
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateCertificateRequest true "签发参数"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/generate-certificate [post]
func (c *CertificateController) Generate(ctx *gin.Context) {
	var req GenerateCertificateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if !canAccessUser(ctx, req.UserID) {
		util.Forbidden(ctx)
		return
	}

	completed, err := c.Onboarding.IsTrainingCompleted(req.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if !completed {
		util.Error(ctx, http.StatusForbidden, util.ErrTrainingIncomplete.Error())
		return
	}

	cert, err := c.Service.Issue(req.UserID, req.UserName, req.Reissue)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, cert)
}

// @Summary 证书核验（凭证书编号查询真伪，无需登录）
// @Tags 证书
// @Produce json
// @Param id path string true "证书编号"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/certificate/{id} [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		util.BadRequest(ctx, "invalid certificate id")
		return
	}

	cert, err := c.Service.Get(id)
	if err != nil {
		util.Error(ctx, http.StatusNotFound, util.ErrCertificateNotFound.Error())
		return
	}

	util.Success(ctx, cert)
}

// @Summary 查询用户证书
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/certificates/{userId} [get]
func (c *CertificateController) ListByUser(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	certs, err := c.Service.ListForUser(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, certs)
}
