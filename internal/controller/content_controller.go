package controller

import (
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/service"
	"onboarding_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContentController struct {
	Service    *service.ContentService
	Onboarding *service.OnboardingService
}

func NewContentController(svc *service.ContentService, onboarding *service.OnboardingService) *ContentController {
	return &ContentController{Service: svc, Onboarding: onboarding}
}

// @Summary 模块列表
// @Tags 培训内容
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/modules [get]
func (c *ContentController) ListModules(ctx *gin.Context) {
	modules, err := c.Service.ListModules()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// @Summary 模块详情
// @Tags 培训内容
// @Produce json
// @Security BearerAuth
// @Param number path int true "模块编号"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/modules/{number} [get]
func (c *ContentController) GetModule(ctx *gin.Context) {
	number := util.MustParseInt(ctx.Param("number"))
	if number == 0 {
		util.BadRequest(ctx, "invalid module number")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims != nil && claims.Role == model.Admin {
		m, err := c.Service.GetModuleAdmin(number)
		if err != nil {
			if err == util.ErrModuleNotFound {
				util.NotFound(ctx)
				return
			}
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, m)
		return
	}

	// 员工按进度解锁，只能看到 currentModule 及之前的模块
	unlockedThrough := 1
	if claims != nil {
		if progress, err := c.Onboarding.GetProgress(claims.UserID); err == nil {
			unlockedThrough = progress.CurrentModule
		}
	}

	m, err := c.Service.GetModuleForUser(number, unlockedThrough)
	if err != nil {
		switch err {
		case util.ErrModuleLocked:
			util.Forbidden(ctx)
		case gorm.ErrRecordNotFound, util.ErrModuleNotFound:
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, m)
}

// @Summary 创建模块
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.OnboardingModule true "模块"
// @Success 201 {object} util.Response
// @Router /api/admin/modules [post]
func (c *ContentController) CreateModule(ctx *gin.Context) {
	var m model.OnboardingModule
	if err := ctx.ShouldBindJSON(&m); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.CreateModule(&m); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// @Summary 更新模块
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Param body body model.OnboardingModule true "模块"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [put]
func (c *ContentController) UpdateModule(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	var m model.OnboardingModule
	if err := ctx.ShouldBindJSON(&m); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m.ID = id

	if err := c.Service.UpdateModule(&m); err != nil {
		if err == gorm.ErrRecordNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// @Summary 删除模块
// @Tags 内容管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [delete]
func (c *ContentController) DeleteModule(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}
	if err := c.Service.DeleteModule(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 上传模块讲解视频
// @Tags 内容管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Param video formData file true "视频文件"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/video [post]
func (c *ContentController) UploadModuleVideo(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid module id")
		return
	}

	file, err := ctx.FormFile("video")
	if err != nil {
		util.BadRequest(ctx, "video file is required")
		return
	}

	m, err := c.Service.UploadModuleVideo(ctx.Request.Context(), id, file)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// @Summary 添加幻灯片
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.ModuleSlide true "幻灯片"
// @Success 201 {object} util.Response
// @Router /api/admin/slides [post]
func (c *ContentController) CreateSlide(ctx *gin.Context) {
	var slide model.ModuleSlide
	if err := ctx.ShouldBindJSON(&slide); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.AddSlide(&slide); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, slide)
}

// @Summary 更新幻灯片
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "幻灯片ID"
// @Param body body model.ModuleSlide true "幻灯片"
// @Success 200 {object} util.Response
// @Router /api/admin/slides/{id} [put]
func (c *ContentController) UpdateSlide(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid slide id")
		return
	}

	var slide model.ModuleSlide
	if err := ctx.ShouldBindJSON(&slide); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	slide.ID = id

	if err := c.Service.UpdateSlide(&slide); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, slide)
}

// @Summary 删除幻灯片
// @Tags 内容管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "幻灯片ID"
// @Success 200 {object} util.Response
// @Router /api/admin/slides/{id} [delete]
func (c *ContentController) DeleteSlide(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid slide id")
		return
	}
	if err := c.Service.DeleteSlide(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 添加检查清单项
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.ChecklistItem true "清单项"
// @Success 201 {object} util.Response
// @Router /api/admin/checklist-items [post]
func (c *ContentController) CreateChecklistItem(ctx *gin.Context) {
	var item model.ChecklistItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.AddChecklistItem(&item); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, item)
}

// @Summary 更新检查清单项
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "清单项ID"
// @Param body body model.ChecklistItem true "清单项"
// @Success 200 {object} util.Response
// @Router /api/admin/checklist-items/{id} [put]
func (c *ContentController) UpdateChecklistItem(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid checklist item id")
		return
	}

	var item model.ChecklistItem
	if err := ctx.ShouldBindJSON(&item); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	item.ID = id

	if err := c.Service.UpdateChecklistItem(&item); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

// @Summary 删除检查清单项
// @Tags 内容管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "清单项ID"
// @Success 200 {object} util.Response
// @Router /api/admin/checklist-items/{id} [delete]
func (c *ContentController) DeleteChecklistItem(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid checklist item id")
		return
	}
	if err := c.Service.DeleteChecklistItem(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 添加测评题目
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.QuizQuestion true "题目"
// @Success 201 {object} util.Response
// @Router /api/admin/questions [post]
func (c *ContentController) CreateQuestion(ctx *gin.Context) {
	var q model.QuizQuestion
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.AddQuestion(&q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 更新测评题目
// @Tags 内容管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Param body body model.QuizQuestion true "题目"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{id} [put]
func (c *ContentController) UpdateQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	var q model.QuizQuestion
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q.ID = id

	if err := c.Service.UpdateQuestion(&q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除测评题目
// @Tags 内容管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{id} [delete]
func (c *ContentController) DeleteQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid question id")
		return
	}
	if err := c.Service.DeleteQuestion(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
