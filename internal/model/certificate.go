package model

import "time"

// Certificate 完成全部入职培训后签发的结业证书，签发后不可变更。
// swagger:model Certificate
type Certificate struct {
	UUIDBase

	UserID      uint      `gorm:"index;type:bigint unsigned" json:"userId"`
	UserName    string    `gorm:"size:100;not null" json:"userName"`
	CourseName  string    `gorm:"size:255;not null" json:"courseName"`
	CompletedAt time.Time `json:"completedAt"`
	URL         string    `gorm:"size:512" json:"url"`
	Reissued    bool      `gorm:"default:false" json:"reissued"`
}

func (Certificate) TableName() string {
	return "certificates"
}
