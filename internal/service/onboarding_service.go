package service

import (
	"context"
	"encoding/json"
	"fmt"
	"onboarding_backend/internal/config"
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/util"
	"onboarding_backend/pkg/logger"
	"onboarding_backend/pkg/monitoring"
	"reflect"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 进度核算与测评闸门依赖的最小存储接口，便于用内存实现做单元测试。
type evaluationStore interface {
	CreateGated(e *model.ModuleEvaluation, window time.Duration, maxAttempts int) error
	ListByUser(userID uint) ([]model.ModuleEvaluation, error)
	ListInWindow(userID uint, moduleNumber int, since time.Time) ([]model.ModuleEvaluation, error)
}

type progressStore interface {
	FindByUser(userID uint) (*model.OnboardingProgress, error)
	Create(p *model.OnboardingProgress) error
	Update(p *model.OnboardingProgress) error
}

type userStore interface {
	FindByID(id uint) (*model.User, error)
}

// AttemptStatus 测评闸门结论。RemainingTime 为毫秒，仅在被拦截时有意义。
type AttemptStatus struct {
	CanAttempt    bool  `json:"canAttempt"`
	RemainingTime int64 `json:"remainingTime,omitempty"`
}

// DeadlineStatus 完成期限结论。
type DeadlineStatus struct {
	IsExpired bool      `json:"isExpired"`
	Deadline  time.Time `json:"deadline"`
}

// EvaluationRequest 测评提交请求。passed 由服务端按及格线重算，不信任前端。
type EvaluationRequest struct {
	UserID           uint           `json:"userId" binding:"required"`
	ModuleNumber     int            `json:"moduleId" binding:"required"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions" binding:"required"`
	CorrectAnswers   int            `json:"correctAnswers"`
	Answers          map[string]int `json:"answers"`
	TimeSpentSeconds int            `json:"timeSpent"`
}

// ProgressUpdateRequest 进度直写请求（管理端修数用），只合并显式给出的字段。
type ProgressUpdateRequest struct {
	CurrentModule    *int                        `json:"currentModule,omitempty"`
	CompletedModules *[]int                      `json:"completedModules,omitempty"`
	ModuleSummaries  map[int]model.ModuleSummary `json:"moduleSummaries,omitempty"`
	Expired          *bool                       `json:"expired,omitempty"`
}

// OnboardingService 入职培训核心：测评闸门、期限追踪与进度核算。
// 策略参数支持配置热更新，经 atomic.Pointer 读写，处理协程无锁读取。
type OnboardingService struct {
	Evaluations evaluationStore
	Progress    progressStore
	Users       userStore
	policy      atomic.Pointer[config.OnboardingConfig]
	rdb         *redis.Client
}

func NewOnboardingService(
	evalRepo evaluationStore,
	progressRepo progressStore,
	userRepo userStore,
	policy config.OnboardingConfig,
	rdb *redis.Client,
) *OnboardingService {
	s := &OnboardingService{
		Evaluations: evalRepo,
		Progress:    progressRepo,
		Users:       userRepo,
		rdb:         rdb,
	}
	s.policy.Store(&policy)
	return s
}

// Policy 返回当前生效的培训策略快照。
func (s *OnboardingService) Policy() config.OnboardingConfig {
	return *s.policy.Load()
}

// SetPolicy 原子替换培训策略，供配置热更新回调使用。
func (s *OnboardingService) SetPolicy(p config.OnboardingConfig) {
	s.policy.Store(&p)
}

// CheckAttempts 测评闸门：滚动窗口内最多 MaxAttempts 次。
// 被拦截时按窗口内最近一次提交时间推算解锁时刻；查询失败时放行，
// 避免基础设施抖动把用户锁在培训外面。
func (s *OnboardingService) CheckAttempts(userID uint, moduleNumber int) AttemptStatus {
	policy := s.Policy()
	since := time.Now().Add(-policy.AttemptWindow())

	evals, err := s.Evaluations.ListInWindow(userID, moduleNumber, since)
	if err != nil {
		logger.Log.Warn("attempt gate query failed, allowing attempt",
			zap.Uint("userId", userID),
			zap.Int("module", moduleNumber),
			zap.Error(err))
		return AttemptStatus{CanAttempt: true}
	}

	if len(evals) >= policy.MaxAttempts {
		// evals 按完成时间降序，evals[0] 是窗口内最近的一次
		nextAllowedAt := evals[0].CompletedAt.Add(policy.AttemptWindow())
		remaining := time.Until(nextAllowedAt)
		if remaining < 0 {
			remaining = 0
		}
		return AttemptStatus{CanAttempt: false, RemainingTime: remaining.Milliseconds()}
	}

	return AttemptStatus{CanAttempt: true}
}

// CheckAndUpdateDeadline 期限追踪：createdAt + DeadlineDays 为截止时间。
// 首次检出超期时重置进度并一次性顺延同样长的宽限期；之后由 expired
// 标记保证不再重复重置。用户数据异常时按"未超期 + 新起一个周期"处理。
func (s *OnboardingService) CheckAndUpdateDeadline(userID uint) DeadlineStatus {
	policy := s.Policy()
	now := time.Now()
	freshDeadline := now.Add(policy.DeadlineWindow())

	user, err := s.Users.FindByID(userID)
	if err != nil || user == nil || user.CreatedAt.IsZero() {
		return DeadlineStatus{IsExpired: false, Deadline: freshDeadline}
	}

	p, err := s.loadOrCreateProgress(userID)
	if err != nil {
		return DeadlineStatus{IsExpired: false, Deadline: freshDeadline}
	}

	deadline := user.CreatedAt.Add(policy.DeadlineWindow())
	if p.DeadlineAt != nil {
		deadline = *p.DeadlineAt
	}

	if now.After(deadline) && !p.Expired {
		extended := now.Add(policy.DeadlineWindow())
		p.CurrentModule = 1
		p.CompletedModules = []int{}
		p.ModuleSummaries = map[int]model.ModuleSummary{}
		p.CompletedAt = nil
		p.Expired = true
		p.DeadlineAt = &extended

		if err := s.Progress.Update(p); err != nil {
			logger.Log.Error("deadline reset failed", zap.Uint("userId", userID), zap.Error(err))
		} else {
			s.invalidateProgressCache(userID)
			logger.Log.Info("onboarding deadline expired, progress reset",
				zap.Uint("userId", userID),
				zap.Time("newDeadline", extended))
		}
		return DeadlineStatus{IsExpired: true, Deadline: extended}
	}

	return DeadlineStatus{IsExpired: now.After(deadline), Deadline: deadline}
}

// SyncProgress 进度核算：把完整测评历史折叠成规范进度并幂等持久化。
//
// 模块按编号顺序扫描，某模块存在达线的通过记录才算完成，扫描在第一个
// 未通过的模块停下（保证解锁顺序不变式）。完成判定看"是否存在通过记录"
// 而非"最近一次是否通过"，因此已完成的模块不会因为后来一次失败被回收。
// 摘要则永远记录每个模块最近一次测评，便于前端展示最新的失败成绩。
func (s *OnboardingService) SyncProgress(userID uint) (*model.OnboardingProgress, error) {
	policy := s.Policy()
	p, err := s.loadOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}

	evals, err := s.Evaluations.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(evals) == 0 {
		return p, nil
	}

	latest := make(map[int]model.ModuleEvaluation)
	latestPass := make(map[int]model.ModuleEvaluation)
	for _, e := range evals {
		if cur, ok := latest[e.ModuleNumber]; !ok || e.CompletedAt.After(cur.CompletedAt) {
			latest[e.ModuleNumber] = e
		}
		if e.Passed && e.Score >= policy.PassThreshold {
			if cur, ok := latestPass[e.ModuleNumber]; !ok || e.CompletedAt.After(cur.CompletedAt) {
				latestPass[e.ModuleNumber] = e
			}
		}
	}

	completed := make([]int, 0, policy.ModuleCount)
	current := 1
	for m := 1; m <= policy.ModuleCount; m++ {
		if _, ok := latestPass[m]; !ok {
			break
		}
		completed = append(completed, m)
		if m < policy.ModuleCount {
			current = m + 1
		} else {
			current = policy.ModuleCount
		}
	}

	summaries := make(map[int]model.ModuleSummary, len(latest))
	for m, e := range latest {
		summaries[m] = model.ModuleSummary{
			Score:       e.Score,
			Passed:      e.Passed,
			CompletedAt: e.CompletedAt,
		}
	}

	var completedAt *time.Time
	if len(completed) == policy.ModuleCount {
		t := latestPass[policy.ModuleCount].CompletedAt
		completedAt = &t
	}

	if progressEqual(p, current, completed, summaries, completedAt) {
		return p, nil
	}

	p.CurrentModule = current
	p.CompletedModules = completed
	p.ModuleSummaries = summaries
	p.CompletedAt = completedAt

	if err := s.Progress.Update(p); err != nil {
		return nil, err
	}
	s.invalidateProgressCache(userID)

	return p, nil
}

// SubmitEvaluation 提交一次测评：闸门复查与落库在仓储层同一事务内完成，
// 随后立即核算进度。窗口已满时返回 util.ErrAttemptLimit。
func (s *OnboardingService) SubmitEvaluation(req EvaluationRequest) (*model.ModuleEvaluation, *model.OnboardingProgress, error) {
	policy := s.Policy()
	if req.ModuleNumber < 1 || req.ModuleNumber > policy.ModuleCount {
		return nil, nil, util.ErrModuleNotFound
	}

	eval := &model.ModuleEvaluation{
		UserID:           req.UserID,
		ModuleNumber:     req.ModuleNumber,
		Score:            req.Score,
		TotalQuestions:   req.TotalQuestions,
		CorrectAnswers:   req.CorrectAnswers,
		Passed:           req.Score >= policy.PassThreshold,
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
		CompletedAt:      time.Now(),
	}

	if err := s.Evaluations.CreateGated(eval, policy.AttemptWindow(), policy.MaxAttempts); err != nil {
		if err == util.ErrAttemptLimit {
			monitoring.AttemptGateRejections.Inc()
		}
		return nil, nil, err
	}

	outcome := "failed"
	if eval.Passed {
		outcome = "passed"
	}
	monitoring.EvaluationCounter.WithLabelValues(strconv.Itoa(eval.ModuleNumber), outcome).Inc()

	progress, err := s.SyncProgress(req.UserID)
	if err != nil {
		// 测评已落库，进度留待下次核算自愈
		logger.Log.Error("progress sync after submission failed",
			zap.Uint("userId", req.UserID), zap.Error(err))
		return eval, nil, nil
	}

	return eval, progress, nil
}

// GetProgress 读取进度，优先命中 Redis 缓存。
func (s *OnboardingService) GetProgress(userID uint) (*model.OnboardingProgress, error) {
	if cached := s.cachedProgress(userID); cached != nil {
		return cached, nil
	}

	p, err := s.Progress.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	s.cacheProgress(p)
	return p, nil
}

// UpdateProgress 管理端直写进度，只合并显式给出的字段（规范字段名，不做别名兼容）。
func (s *OnboardingService) UpdateProgress(userID uint, req ProgressUpdateRequest) (*model.OnboardingProgress, error) {
	p, err := s.loadOrCreateProgress(userID)
	if err != nil {
		return nil, err
	}

	if req.CurrentModule != nil {
		p.CurrentModule = *req.CurrentModule
	}
	if req.CompletedModules != nil {
		p.CompletedModules = *req.CompletedModules
	}
	if req.ModuleSummaries != nil {
		p.ModuleSummaries = req.ModuleSummaries
	}
	if req.Expired != nil {
		p.Expired = *req.Expired
	}

	if err := s.Progress.Update(p); err != nil {
		return nil, err
	}
	s.invalidateProgressCache(userID)
	return p, nil
}

// IsTrainingCompleted 全部模块是否均已完成（证书签发前置条件）。
func (s *OnboardingService) IsTrainingCompleted(userID uint) (bool, error) {
	p, err := s.Progress.FindByUser(userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return len(p.CompletedModules) >= s.Policy().ModuleCount, nil
}

func (s *OnboardingService) loadOrCreateProgress(userID uint) (*model.OnboardingProgress, error) {
	p, err := s.Progress.FindByUser(userID)
	if err == nil {
		return p, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	p = &model.OnboardingProgress{
		UserID:           userID,
		CurrentModule:    1,
		CompletedModules: []int{},
		ModuleSummaries:  map[int]model.ModuleSummary{},
	}
	if err := s.Progress.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func progressEqual(p *model.OnboardingProgress, current int, completed []int, summaries map[int]model.ModuleSummary, completedAt *time.Time) bool {
	if p.CurrentModule != current {
		return false
	}

	existing := append([]int(nil), p.CompletedModules...)
	sort.Ints(existing)
	if len(existing) != len(completed) {
		return false
	}
	for i := range existing {
		if existing[i] != completed[i] {
			return false
		}
	}
	if !reflect.DeepEqual(p.ModuleSummaries, summaries) {
		return false
	}

	if (p.CompletedAt == nil) != (completedAt == nil) {
		return false
	}
	if p.CompletedAt != nil && !p.CompletedAt.Equal(*completedAt) {
		return false
	}
	return true
}

const progressCacheTTL = 5 * time.Minute

func progressCacheKey(userID uint) string {
	return fmt.Sprintf("onboarding:progress:%d", userID)
}

func (s *OnboardingService) cachedProgress(userID uint) *model.OnboardingProgress {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(context.Background(), progressCacheKey(userID)).Bytes()
	if err != nil {
		return nil
	}
	var p model.OnboardingProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func (s *OnboardingService) cacheProgress(p *model.OnboardingProgress) {
	if s.rdb == nil || p == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.rdb.Set(context.Background(), progressCacheKey(p.UserID), data, progressCacheTTL)
}

func (s *OnboardingService) invalidateProgressCache(userID uint) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(context.Background(), progressCacheKey(userID))
}
