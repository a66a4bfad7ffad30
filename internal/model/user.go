package model

import (
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'learner'" json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	Profile   *Profile   `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Profile 学习者档案，XP/等级/连续打卡只由课程完成流程修改
type Profile struct {
	BaseModel
	UserID         uint       `gorm:"uniqueIndex;not null" json:"userId"`
	DisplayName    string     `gorm:"size:100;not null" json:"displayName"`
	XP             int        `gorm:"default:0;not null" json:"xp"`
	Level          int        `gorm:"default:1;not null" json:"level"`
	Streak         int        `gorm:"default:0;not null" json:"streak"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
	AvatarURL      string     `gorm:"size:255" json:"avatarUrl"`
}

func (Profile) TableName() string {
	return "profiles"
}
