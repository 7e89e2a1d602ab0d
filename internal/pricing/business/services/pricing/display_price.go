package pricing

import (
	"math"

	"pricewatch_api/config/values"
)

// Calculator считает отображаемую ("фиолетовую") цену из
// price_after_seller_discount:
//
//	raw = base * (1 - p)
//	если base >= threshold: ui = floor(raw / step) * step
//	иначе ui = raw
//
// Возвращается целое в рублях, всегда с округлением вниз.
type Calculator struct {
	walletPercent  float64
	roundThreshold float64
	roundStep      float64
}

func NewCalculator(v values.PricingValues) *Calculator {
	step := v.RoundStep
	if step <= 0 {
		step = 1
	}
	return &Calculator{
		walletPercent:  v.WalletPercent,
		roundThreshold: v.RoundThreshold,
		roundStep:      step,
	}
}

// DeriveDisplayPrice возвращает nil для нулевой, отрицательной или
// отсутствующей базовой цены (в т.ч. для сентинела -1).
func (c *Calculator) DeriveDisplayPrice(basePrice float64) *int64 {
	if basePrice <= 0 || math.IsNaN(basePrice) || math.IsInf(basePrice, 0) {
		return nil
	}

	raw := basePrice
	if c.walletPercent > 0 {
		raw = basePrice * (1 - c.walletPercent)
	}

	var ui float64
	if c.roundThreshold > 0 && basePrice >= c.roundThreshold {
		ui = math.Floor(raw/c.roundStep) * c.roundStep
	} else {
		ui = raw
	}

	result := int64(math.Floor(ui))
	return &result
}
