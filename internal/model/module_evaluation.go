package model

import "time"

// ModuleEvaluation 每次问卷提交一行，落库后不再修改（审计用）。
// swagger:model ModuleEvaluation
type ModuleEvaluation struct {
	BaseModel

	UserID           uint           `gorm:"index:idx_eval_user_module;type:bigint unsigned" json:"userId"`
	ModuleNumber     int            `gorm:"index:idx_eval_user_module;not null" json:"moduleNumber"`
	AttemptNumber    int            `gorm:"not null" json:"attemptNumber"`
	Score            int            `gorm:"not null" json:"score"`
	TotalQuestions   int            `gorm:"not null" json:"totalQuestions"`
	CorrectAnswers   int            `gorm:"not null" json:"correctAnswers"`
	Passed           bool           `gorm:"default:false" json:"passed"`
	Answers          map[string]int `gorm:"serializer:json;type:json" json:"answers"`
	TimeSpentSeconds int            `json:"timeSpentSeconds"`
	CompletedAt      time.Time      `gorm:"index" json:"completedAt"`
}

func (ModuleEvaluation) TableName() string {
	return "module_evaluations"
}
