package repository

import (
	"database/sql"
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EvaluationRepository 测评记录仓储。记录只增不改，作为进度核算的事实来源。
type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

// CreateGated 在同一个串行化事务里复查补考窗口并落库，
// 消除"先查后插"在并发提交下超出次数限制的竞态。
// 窗口内已满时返回 util.ErrAttemptLimit，不写入任何数据。
func (r *EvaluationRepository) CreateGated(e *model.ModuleEvaluation, window time.Duration, maxAttempts int) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		since := time.Now().Add(-window)

		var inWindow int64
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Model(&model.ModuleEvaluation{}).
			Where("user_id = ? AND module_number = ? AND completed_at > ?", e.UserID, e.ModuleNumber, since).
			Count(&inWindow).Error
		if err != nil {
			return err
		}
		if inWindow >= int64(maxAttempts) {
			return util.ErrAttemptLimit
		}

		// 尝试序号对 (user, module) 严格递增
		var total int64
		err = tx.Model(&model.ModuleEvaluation{}).
			Where("user_id = ? AND module_number = ?", e.UserID, e.ModuleNumber).
			Count(&total).Error
		if err != nil {
			return err
		}
		e.AttemptNumber = int(total) + 1

		return tx.Create(e).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (r *EvaluationRepository) FindByID(id uint) (*model.ModuleEvaluation, error) {
	var e model.ModuleEvaluation
	if err := r.DB.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser 返回用户全部测评历史，按完成时间升序。
func (r *EvaluationRepository) ListByUser(userID uint) ([]model.ModuleEvaluation, error) {
	var evals []model.ModuleEvaluation
	err := r.DB.Where("user_id = ?", userID).
		Order("completed_at ASC").
		Find(&evals).Error
	return evals, err
}

// ListInWindow 返回 (user, module) 在 since 之后的测评，按完成时间降序。
func (r *EvaluationRepository) ListInWindow(userID uint, moduleNumber int, since time.Time) ([]model.ModuleEvaluation, error) {
	var evals []model.ModuleEvaluation
	err := r.DB.Where("user_id = ? AND module_number = ? AND completed_at > ?", userID, moduleNumber, since).
		Order("completed_at DESC").
		Find(&evals).Error
	return evals, err
}

func (r *EvaluationRepository) ListByUserAndModule(userID uint, moduleNumber int) ([]model.ModuleEvaluation, error) {
	var evals []model.ModuleEvaluation
	err := r.DB.Where("user_id = ? AND module_number = ?", userID, moduleNumber).
		Order("completed_at DESC").
		Find(&evals).Error
	return evals, err
}
