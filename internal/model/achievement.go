package model

import (
	"bravolearn_backend/internal/engine"
	"time"
)

// Achievement 成就目录（静态）
type Achievement struct {
	BaseModel
	Code             string                 `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name             string                 `gorm:"size:100;not null" json:"name"`
	Description      string                 `gorm:"size:255" json:"description"`
	Icon             string                 `gorm:"size:255" json:"icon"`
	RequirementType  engine.RequirementKind `gorm:"size:32;not null" json:"requirementType"`
	RequirementValue int                    `gorm:"not null" json:"requirementValue"`
}

func (Achievement) TableName() string {
	return "achievements"
}

func (a *Achievement) Rule() engine.AchievementRule {
	return engine.AchievementRule{ID: a.ID, Kind: a.RequirementType, Threshold: a.RequirementValue}
}

type UserAchievement struct {
	BaseModel
	UserID        uint         `gorm:"uniqueIndex:idx_user_achievement;not null" json:"userId"`
	AchievementID uint         `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievementId"`
	UnlockedAt    time.Time    `gorm:"not null" json:"unlockedAt"`
	Achievement   *Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
