package models

// FetchResult — нормализованный ответ источника цен для одного nm_id.
// Поля селлера и Available опциональны: карточный API отдаёт их не всегда.
type FetchResult struct {
	NmID                int64
	Brand               string
	Title               string
	PriceBeforeDiscount float64
	PriceAfterDiscount  float64
	SellerID            *int64
	SellerName          *string
	Available           *bool
}

// IsUnavailable определяет доступность по явному флагу или по паре цен.
// Отсутствие обеих цен — это "нет в продаже", а не ошибка запроса.
func (fr *FetchResult) IsUnavailable() bool {
	if fr.Available != nil && !*fr.Available {
		return true
	}
	return fr.PriceBeforeDiscount <= 0 && fr.PriceAfterDiscount <= 0
}
