package controller

import (
	"bravolearn_backend/internal/service"
	"bravolearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
	DefaultLimit       int
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService, defaultLimit int) *LeaderboardController {
	if defaultLimit <= 0 {
		defaultLimit = util.DefaultLeaderboardLimit
	}
	return &LeaderboardController{LeaderboardService: leaderboardService, DefaultLimit: defaultLimit}
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Description 按 XP 降序，XP 相同按用户ID升序
// @Tags 排行榜
// @Produce  json
// @Param   limit query int false "返回条数（1-100）"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry} "成功"
// @Router /api/leaderboard [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	limit := util.QueryLimit(ctx, c.DefaultLimit, util.MaxLeaderboardLimit)

	entries, err := c.LeaderboardService.Top(ctx.Request.Context(), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// GetMyRank godoc
// @Summary 我的排名
// @Tags 排行榜
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/leaderboard/me [get]
func (c *LeaderboardController) GetMyRank(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	entry, total, err := c.LeaderboardService.RankOf(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"entry": entry,
		"total": total,
	})
}
