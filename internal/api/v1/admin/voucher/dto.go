package voucher

import "time"

type CreateInput struct {
	Code             string     `json:"code" binding:"omitempty,max=64"`
	Amount           float64    `json:"amount" binding:"required,gt=0"`
	MaxUsage         *int       `json:"max_usage" binding:"omitempty,gt=0"`
	ExpiresAt        *time.Time `json:"expires_at"`
	SingleUsePerUser bool       `json:"single_use_per_user"`
}

type SetActiveInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
