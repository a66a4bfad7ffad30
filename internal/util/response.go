package util

import (
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Ctx(c.Request.Context()).Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// StatusOf 将业务错误映射为 HTTP 状态码，无法识别的返回 500
func StatusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrLessonNotFound),
		errors.Is(err, engine.ErrProfileNotFound),
		errors.Is(err, engine.ErrExerciseNotFound),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnsupportedExerciseKind),
		errors.Is(err, engine.ErrMalformedAnswer),
		errors.Is(err, engine.ErrEmptyLesson),
		errors.Is(err, engine.ErrLessonNotEvaluated),
		errors.Is(err, ErrInvalidFileType),
		errors.Is(err, ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, ErrLessonLocked),
		errors.Is(err, ErrNotEnrolled),
		errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrEmailRegistered),
		errors.Is(err, ErrCompletionInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// HandleError 业务错误返回对应状态码，其余记录日志后返回 500
func HandleError(c *gin.Context, err error) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		LogInternalError(c, err)
		return
	}
	Error(c, code, err.Error())
}
