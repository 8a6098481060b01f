package subscription

type CreateInput struct {
	ResourceType string  `json:"resource_type" binding:"required,oneof=device bot panel"`
	ResourceID   string  `json:"resource_id" binding:"required,max=100"`
	MonthlyFee   float64 `json:"monthly_fee" binding:"gte=0"`
	IsFreeFirst  bool    `json:"is_free_first"`
}
