package billing

type ChargeMessageInput struct {
	Platform string `json:"platform" binding:"required,oneof=whatsapp telegram"`
	IsGroup  bool   `json:"is_group"`
}

type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

type RateResponse struct {
	Platform string  `json:"platform"`
	IsGroup  bool    `json:"is_group"`
	Rate     float64 `json:"rate"`
}
