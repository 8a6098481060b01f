package credit

type AdjustInput struct {
	UserID      uint    `json:"user_id" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Kind        string  `json:"kind" binding:"required,oneof=add deduct"`
	Description string  `json:"description" binding:"required,max=255"`
}

type AdjustResponse struct {
	UserID        uint    `json:"user_id"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
}
