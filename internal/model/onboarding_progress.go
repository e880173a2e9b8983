package model

import "time"

// ModuleSummary 某个模块最近一次测评的结论。
type ModuleSummary struct {
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

// OnboardingProgress 每个用户一行的规范进度状态，仅由进度核算逻辑写入。
// swagger:model OnboardingProgress
type OnboardingProgress struct {
	BaseModel

	UserID           uint                  `gorm:"uniqueIndex;type:bigint unsigned" json:"userId"`
	CurrentModule    int                   `gorm:"default:1" json:"currentModule"`
	CompletedModules []int                 `gorm:"serializer:json;type:json" json:"completedModules"`
	ModuleSummaries  map[int]ModuleSummary `gorm:"serializer:json;type:json" json:"moduleSummaries"`
	CompletedAt      *time.Time            `json:"completedAt,omitempty"`
	Expired          bool                  `gorm:"default:false" json:"expired"`
	DeadlineAt       *time.Time            `json:"deadlineAt,omitempty"`
}

func (OnboardingProgress) TableName() string {
	return "onboarding_progress"
}
