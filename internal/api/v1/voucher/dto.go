package voucher

type RedeemInput struct {
	Code string `json:"code" binding:"required,min=1,max=64"`
}
