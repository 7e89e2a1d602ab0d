package responses

// CardDetailResponse — ответ card.wb.ru /cards/v2/detail. Поля цен в копейках.
type CardDetailResponse struct {
	Data struct {
		Products []CardProduct `json:"products"`
	} `json:"data"`
}

type CardProduct struct {
	ID         int64      `json:"id"`
	Brand      string     `json:"brand"`
	Name       string     `json:"name"`
	SupplierID *int64     `json:"supplierId"`
	Supplier   *string    `json:"supplier"`
	Sizes      []CardSize `json:"sizes"`
}

type CardSize struct {
	Price *SizePrice `json:"price"`
}

// SizePrice: в формате v2 поля называются basic/product/total.
type SizePrice struct {
	Basic   int64 `json:"basic"`
	Product int64 `json:"product"`
	Total   int64 `json:"total"`
}
