package pricing

type SetPricingInput struct {
	Key   string  `json:"key" binding:"required,oneof=message_rate group_message_rate telegram_message_rate whatsapp_message_rate"`
	Value float64 `json:"value" binding:"gte=0"`
}
