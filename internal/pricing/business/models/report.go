package models

// ItemError — ошибка получения цены по одному товару; не прерывает пакет.
type ItemError struct {
	NmID  int64  `json:"nm_id"`
	Error string `json:"error"`
}

// BatchReport — отчёт одного вызова refresh-batch (инкрементальный или force).
type BatchReport struct {
	Requested    int         `json:"requested"`
	Selected     int         `json:"selected"`
	UpdatedCount int         `json:"updated_count"`
	Updated      []int64     `json:"updated"`
	ErrorsCount  int         `json:"errors_count"`
	Errors       []ItemError `json:"errors"`
	Remaining    int         `json:"remaining"`
	Done         bool        `json:"done"`
	Force        bool        `json:"force"`
	Offset       int         `json:"offset,omitempty"`
	NextOffset   *int        `json:"next_offset,omitempty"`
	Total        *int        `json:"total,omitempty"`
}

// SweepReport — суммарный отчёт полного обхода каталога.
type SweepReport struct {
	Locked          bool        `json:"locked"`
	Iterations      int         `json:"iterations"`
	UpdatedTotal    int         `json:"updated_total"`
	ErrorsTotal     int         `json:"errors_total"`
	ErrorsLastBatch []ItemError `json:"errors_last_batch"`
	Remaining       int         `json:"remaining"`
	Done            bool        `json:"done"`
}

// ImportReport — итог массовой загрузки xlsx/csv.
type ImportReport struct {
	Total       int `json:"total"`
	Affected    int `json:"affected"`
	Skipped     int `json:"skipped"`
	ErrorsCount int `json:"errors_count"`
}
