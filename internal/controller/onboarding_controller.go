package controller

import (
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/service"
	"onboarding_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OnboardingController struct {
	Service *service.OnboardingService
}

func NewOnboardingController(svc *service.OnboardingService) *OnboardingController {
	return &OnboardingController{Service: svc}
}

// canAccessUser 员工只能访问自己的数据，管理员不受限。
func canAccessUser(ctx *gin.Context, userID uint) bool {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		return false
	}
	return claims.UserID == userID || claims.Role == model.Admin
}

// @Summary 查询模块补考资格
// @Tags 培训测评
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Param moduleId path int true "模块编号"
// @Success 200 {object} util.Response
// @Router /api/check-attempts/{userId}/{moduleId} [get]
func (c *OnboardingController) CheckAttempts(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	moduleID := util.MustParseInt(ctx.Param("moduleId"))
	if userID == 0 || moduleID == 0 {
		util.BadRequest(ctx, "invalid userId or moduleId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	status := c.Service.CheckAttempts(userID, moduleID)
	util.Success(ctx, status)
}

// @Summary 查询培训完成期限
// @Tags 培训测评
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/check-deadline/{userId} [get]
func (c *OnboardingController) CheckDeadline(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	status := c.Service.CheckAndUpdateDeadline(userID)
	util.Success(ctx, status)
}

// @Summary 提交模块测评
// @Tags 培训测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.EvaluationRequest true "测评结果"
// @Success 200 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /api/evaluations [post]
func (c *OnboardingController) SubmitEvaluation(ctx *gin.Context) {
	var req service.EvaluationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Score < 0 || req.Score > 100 {
		util.BadRequest(ctx, "score must be between 0 and 100")
		return
	}
	if !canAccessUser(ctx, req.UserID) {
		util.Forbidden(ctx)
		return
	}

	// 闸门预检，给前端即时的剩余等待时间
	status := c.Service.CheckAttempts(req.UserID, req.ModuleNumber)
	if !status.CanAttempt {
		util.TooManyAttempts(ctx, "补考次数已用完，请稍后再试", status.RemainingTime)
		return
	}

	eval, progress, err := c.Service.SubmitEvaluation(req)
	if err != nil {
		if err == util.ErrAttemptLimit {
			// 并发提交触碰事务内复查，重算剩余等待时间
			status = c.Service.CheckAttempts(req.UserID, req.ModuleNumber)
			util.TooManyAttempts(ctx, "补考次数已用完，请稍后再试", status.RemainingTime)
			return
		}
		if err == util.ErrModuleNotFound {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"evaluation": eval,
		"progress":   progress,
	})
}

// @Summary 触发进度核算
// @Tags 培训测评
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/sync-progress/{userId} [post]
func (c *OnboardingController) SyncProgress(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	progress, err := c.Service.SyncProgress(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 读取进度
// @Tags 培训测评
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/progress/{userId} [get]
func (c *OnboardingController) GetProgress(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	progress, err := c.Service.GetProgress(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 直写进度（管理端修数）
// @Tags 培训测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Param body body service.ProgressUpdateRequest true "进度字段"
// @Success 200 {object} util.Response
// @Router /api/progress/{userId} [put]
func (c *OnboardingController) UpdateProgress(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}

	var req service.ProgressUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.Service.UpdateProgress(userID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 查询测评历史
// @Tags 培训测评
// @Produce json
// @Security BearerAuth
// @Param userId path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/evaluations/{userId} [get]
func (c *OnboardingController) ListEvaluations(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("userId"))
	if userID == 0 {
		util.BadRequest(ctx, "invalid userId")
		return
	}
	if !canAccessUser(ctx, userID) {
		util.Forbidden(ctx)
		return
	}

	evals, err := c.Service.Evaluations.ListByUser(userID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, evals)
}
