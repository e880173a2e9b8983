package model

// OnboardingModule 一个培训模块（编号 1..N），需按顺序通过测评解锁。
// swagger:model OnboardingModule
type OnboardingModule struct {
	BaseModel
	Number        int             `gorm:"uniqueIndex;not null" json:"number"`
	Title         string          `gorm:"size:255;not null" json:"title"`
	Description   string          `gorm:"type:text" json:"description"`
	VideoURL      string          `gorm:"size:512" json:"videoUrl"`
	VideoDuration float64         `gorm:"default:0" json:"videoDuration"`
	ThumbnailURL  string          `gorm:"size:512" json:"thumbnailUrl"`
	Published     bool            `gorm:"default:true" json:"published"`
	Slides        []ModuleSlide   `gorm:"foreignKey:ModuleID" json:"slides,omitempty"`
	Checklist     []ChecklistItem `gorm:"foreignKey:ModuleID" json:"checklist,omitempty"`
	Questions     []QuizQuestion  `gorm:"foreignKey:ModuleID" json:"questions,omitempty"`
}

func (OnboardingModule) TableName() string {
	return "onboarding_modules"
}

// swagger:model ModuleSlide
type ModuleSlide struct {
	BaseModel
	ModuleID uint   `gorm:"index;type:bigint unsigned" json:"moduleId"`
	Order    int    `gorm:"default:0" json:"order"`
	Title    string `gorm:"size:255" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	ImageURL string `gorm:"size:512" json:"imageUrl"`
}

func (ModuleSlide) TableName() string {
	return "module_slides"
}

// swagger:model ChecklistItem
type ChecklistItem struct {
	BaseModel
	ModuleID uint   `gorm:"index;type:bigint unsigned" json:"moduleId"`
	Order    int    `gorm:"default:0" json:"order"`
	Text     string `gorm:"size:512;not null" json:"text"`
	Required bool   `gorm:"default:true" json:"required"`
}

func (ChecklistItem) TableName() string {
	return "checklist_items"
}

// QuizQuestion 模块测评题目，Options 为选项文本数组，CorrectOption 为正确项下标。
// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	ModuleID      uint     `gorm:"index;type:bigint unsigned" json:"moduleId"`
	Order         int      `gorm:"default:0" json:"order"`
	Text          string   `gorm:"type:text;not null" json:"text"`
	Options       []string `gorm:"serializer:json;type:json" json:"options"`
	CorrectOption int      `gorm:"default:0" json:"-"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
