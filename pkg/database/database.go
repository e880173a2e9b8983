package database

import (
	"fmt"
	"log"
	"onboarding_backend/internal/config"
	"onboarding_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.OnboardingModule{},
		&model.ModuleSlide{},
		&model.ChecklistItem{},
		&model.QuizQuestion{},
		&model.ModuleEvaluation{},
		&model.OnboardingProgress{},
		&model.Certificate{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认培训模块（空库时初始化 4 个模块骨架，内容由管理端补充）
	var count int64
	db.Model(&model.OnboardingModule{}).Count(&count)
	if count == 0 {
		defaultModules := []model.OnboardingModule{
			{Number: 1, Title: "公司与文化", Description: "公司历史、价值观与组织架构", Published: true},
			{Number: 2, Title: "制度与合规", Description: "考勤、报销、信息安全与行为准则", Published: true},
			{Number: 3, Title: "岗位与流程", Description: "岗位职责、协作流程与常用系统", Published: true},
			{Number: 4, Title: "安全与应急", Description: "办公安全、数据安全与应急预案", Published: true},
		}
		for _, m := range defaultModules {
			db.Create(&m)
		}
	}

	return db, nil
}
