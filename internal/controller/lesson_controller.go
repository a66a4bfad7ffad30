package controller

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/service"
	"bravolearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// GetLesson godoc
// @Summary 课时详情
// @Description 返回课时和练习题（不含标准答案），课时未解锁时返回 403
// @Tags 课时
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonView} "成功"
// @Failure 403 {object} util.Response "课时未解锁"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	view, err := c.LessonService.GetLesson(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// StartLesson godoc
// @Summary 开始课时
// @Description 记录 in_progress 状态，已完成的课时不受影响
// @Tags 课时
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 403 {object} util.Response "课时未解锁"
// @Router /api/lessons/{id}/start [post]
func (c *LessonController) StartLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	status, err := c.LessonService.StartLesson(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, engine.LessonAccess{LessonID: id, Status: status})
}

// SubmitAnswerRequest 作答内容：字符串、字符串数组或 {空位: 答案} 对象
// swagger:model SubmitAnswerRequest
type SubmitAnswerRequest struct {
	Answer engine.Answer `json:"answer" swaggertype:"object"`
}

// SubmitAnswer godoc
// @Summary 提交作答
// @Description 判定单道练习题并记录作答
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "练习题ID"
// @Param   body body SubmitAnswerRequest true "作答内容"
// @Success 200 {object} util.Response{data=service.AnswerResult} "成功"
// @Failure 400 {object} util.Response "答案格式错误"
// @Failure 403 {object} util.Response "课时未解锁"
// @Failure 404 {object} util.Response "练习题不存在"
// @Router /api/exercises/{id}/answer [post]
func (c *LessonController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Answer.IsZero() {
		util.BadRequest(ctx, "answer is required")
		return
	}

	result, err := c.LessonService.SubmitAnswer(ctx.Request.Context(), claims.UserID, id, req.Answer)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 根据已提交的作答计算得分，更新 XP、等级、连续打卡并解锁成就
// @Tags 课时
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.CompletionResult} "成功"
// @Failure 400 {object} util.Response "存在未作答的练习题"
// @Failure 403 {object} util.Response "课时未解锁"
// @Failure 409 {object} util.Response "重复提交"
// @Router /api/lessons/{id}/complete [post]
func (c *LessonController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := util.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	result, err := c.LessonService.CompleteLesson(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
