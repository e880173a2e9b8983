package service

import (
	"fmt"
	"onboarding_backend/internal/model"
	"onboarding_backend/internal/repository"
	"onboarding_backend/internal/util"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserFilter 定义用户筛选条件
// swagger:model UserFilter
type UserFilter struct {
	Role      string
	Status    string
	Search    string
	StartDate time.Time
	EndDate   time.Time
}

// UserService 管理端用户 CRUD。
type UserService struct {
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
}

func NewUserService(userRepo *repository.UserRepository, progressRepo *repository.ProgressRepository) *UserService {
	return &UserService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
	}
}

// GetUsers 获取用户列表，支持分页和筛选
func (s *UserService) GetUsers(page, pageSize int, filter UserFilter) ([]model.User, int, error) {
	var users []model.User
	var total int64

	query := s.UserRepo.DB.Model(&model.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if filter.Status == "active" {
		query = query.Where("disabled = ?", false)
	} else if filter.Status == "disabled" {
		query = query.Where("disabled = ?", true)
	}

	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", searchTerm, searchTerm)
	}

	if !filter.StartDate.IsZero() {
		query = query.Where("created_at >= ?", filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		query = query.Where("created_at <= ?", filter.EndDate)
	}

	query.Count(&total)

	offset := (page - 1) * pageSize
	query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&users)

	return users, int(total), nil
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	return s.UserRepo.FindByID(id)
}

// UpdateUser 更新用户信息（管理端）
func (s *UserService) UpdateUser(user *model.User) error {
	existingUser, err := s.UserRepo.FindByID(user.ID)
	if err != nil {
		return util.ErrUserNotFound
	}

	existingUser.Name = user.Name
	existingUser.Email = user.Email
	existingUser.Role = user.Role
	existingUser.Department = user.Department
	existingUser.Position = user.Position
	existingUser.Disabled = user.Disabled
	existingUser.UpdatedAt = time.Now()

	return s.UserRepo.Update(existingUser)
}

// UpdateProfile 用户更新自己的资料（不允许改角色）
func (s *UserService) UpdateProfile(userID uint, name, department, position, avatar string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	if name != "" {
		user.Name = name
	}
	if department != "" {
		user.Department = department
	}
	if position != "" {
		user.Position = position
	}
	if avatar != "" {
		user.Avatar = avatar
	}

	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword 重置用户密码，返回临时密码
func (s *UserService) ResetPassword(userID uint) (string, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return "", util.ErrUserNotFound
	}

	tempPassword := fmt.Sprintf("Onboard@%d", time.Now().Unix()%1000000)
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user.Password = string(hashed)
	if err := s.UserRepo.Update(user); err != nil {
		return "", err
	}

	return tempPassword, nil
}

// SetDisabled 启用/停用账号
func (s *UserService) SetDisabled(userID uint, disabled bool) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return util.ErrUserNotFound
	}
	user.Disabled = disabled
	return s.UserRepo.Update(user)
}

// CompletedReport 所有已完成全部培训的进度行（后台报表）。
func (s *UserService) CompletedReport() ([]model.OnboardingProgress, error) {
	return s.ProgressRepo.ListCompleted()
}

// DeleteUser 删除用户及其进度行（测评历史保留作审计）
func (s *UserService) DeleteUser(userID uint) error {
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		return util.ErrUserNotFound
	}
	if err := s.ProgressRepo.DeleteByUser(userID); err != nil {
		return err
	}
	return s.UserRepo.Delete(userID)
}
