package models

import "time"

// Product — строка отслеживаемого товара в рамках одного каталога.
//
// PriceAfterDiscount = -1 означает "проверяли, валидной цены нет" и отличается
// от 0/NULL ("ещё не проверяли"). DisplayPrice считается только для валидной
// положительной цены.
type Product struct {
	NmID                int64      `json:"nm_id"`
	Brand               string     `json:"brand"`
	Title               string     `json:"title"`
	SellerID            *int64     `json:"seller_id,omitempty"`
	SellerName          *string    `json:"seller_name,omitempty"`
	PriceBeforeDiscount float64    `json:"price_before_discount"`
	PriceAfterDiscount  float64    `json:"price_after_seller_discount"`
	DisplayPrice        *int64     `json:"ui_price,omitempty"`
	FloorPrice          *float64   `json:"rrc,omitempty"`
	Sales24h            *int64     `json:"sales_24h,omitempty"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// Unavailable — сентинел "проверено, товара нет в продаже".
const Unavailable float64 = -1

// Admin — получатель уведомлений.
type Admin struct {
	ChatID   int64  `json:"chat_id"`
	Username string `json:"username,omitempty"`
}

// ViolatingSeller — селлер с количеством товаров, проданных ниже РРЦ.
type ViolatingSeller struct {
	SellerID       int64   `json:"seller_id"`
	SellerName     *string `json:"seller_name,omitempty"`
	ViolationCount int     `json:"violation_count"`
}

// CatalogStats возвращается из /api/stats.
type CatalogStats struct {
	TotalRows      int `json:"total_rows"`
	ViolationCount int `json:"violation_count"`
	DueCount       int `json:"due_count"`
}
