package controller

import (
	"bravolearn_backend/internal/service"
	"bravolearn_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// GetProfile godoc
// @Summary 个人档案
// @Description 档案、等级进度、学习统计和排名
// @Tags 用户
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProfileOverview} "成功"
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	overview, err := c.ProfileService.Overview(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   avatar formData file true "头像图片（png/jpg/gif/webp，最大 2MB）"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件不合法"
// @Router /api/profile/avatar [post]
func (c *ProfileController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	url, err := c.ProfileService.UploadAvatar(ctx.Request.Context(), claims.UserID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"avatarUrl": url})
}

// DebugState godoc
// @Summary 学习状态调试
// @Description 原始报名、课时进度和成就记录，默认查看自己，管理员可指定 userId
// @Tags 系统
// @Produce  json
// @Security ApiKeyAuth
// @Param   userId query int false "用户ID"
// @Success 200 {object} util.Response{data=service.DebugState} "成功"
// @Failure 403 {object} util.Response "无权限"
// @Router /api/debug/state [get]
func (c *ProfileController) DebugState(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	userID := claims.UserID
	if s := ctx.Query("userId"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			util.BadRequest(ctx, "Invalid userId")
			return
		}
		userID = uint(id)
	}

	state, err := c.ProfileService.DebugState(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, state)
}
