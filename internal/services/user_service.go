package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOptimisticLock     = errors.New("data has been modified by another user, please refresh and try again")
)

type UserService struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *UserService {
	return &UserService{db: db, redis: redisClient, logger: logger}
}

// Register creates the user and their credit account in one transaction.
// The first registered user becomes the admin.
func (s *UserService) Register(username, password string) (*models.User, error) {
	var existingUser models.User
	result := s.db.Where("username = ?", username).First(&existingUser)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)

	role := models.RoleUser
	if userCount == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username: username,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Account{UserID: user.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate checks the username/password pair and returns the user.
func (s *UserService) Authenticate(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// FindByID loads a user, served from the redis cache when possible.
func (s *UserService) FindByID(userID uint) (models.User, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("user:%d", userID)
	if s.redis != nil {
		val, err := s.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(user); err == nil {
			s.redis.Set(ctx, cacheKey, data, time.Hour)
		}
	}

	return user, nil
}

// Find retrieves a paginated list of users.
func (s *UserService) Find(page, limit int) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	offset := (page - 1) * limit

	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := s.db.Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update applies selective field updates with optimistic locking and
// invalidates the cached copy. Used by admins for billing adjustments
// (discount, rate override, role, active flag).
func (s *UserService) Update(id uint, updates map[string]interface{}, operator string) (*models.User, error) {
	var user models.User

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if password, ok := updates["password"].(string); ok && password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			updates["password"] = string(hashedPassword)
		}

		currentVersion := user.Version
		updates["version"] = currentVersion + 1

		// The version predicate makes the update atomic with the check
		result := tx.Model(&user).Where("version = ?", currentVersion).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		s.redis.Del(context.Background(), fmt.Sprintf("user:%d", id))
	}

	s.logger.Info("user updated",
		zap.Uint("user_id", id),
		zap.String("operator", operator),
	)

	s.db.First(&user, id)
	return &user, nil
}
