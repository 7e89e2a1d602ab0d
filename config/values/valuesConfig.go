package values

type Config interface {
}

// PricingValues управляет расчётом отображаемой ("фиолетовой") цены и выборкой
// пакетного обновления.
type PricingValues struct {
	WalletPercent  float64 `yaml:"wallet_percent"`  // 0.02 => 2%
	RoundThreshold float64 `yaml:"round_threshold"` // порог округления (0 = выкл)
	RoundStep      float64 `yaml:"round_step"`      // шаг округления (>=1)
	BatchLimit     int     `yaml:"batch_limit"`
	StalenessHours int     `yaml:"staleness_hours"` // 0 = только строки без цены
}

func (v *PricingValues) ApplyDefaults() {
	if v.BatchLimit <= 0 {
		v.BatchLimit = 20
	}
	if v.RoundStep <= 0 {
		v.RoundStep = 1
	}
	if v.StalenessHours < 0 {
		v.StalenessHours = 0
	}
}

// AlertingValues задаёт окно активных часов для рассылки уведомлений.
type AlertingValues struct {
	ActiveHoursStart int `yaml:"active_hours_start"`
	ActiveHoursEnd   int `yaml:"active_hours_end"`
	UTCOffsetHours   int `yaml:"utc_offset_hours"`
}

func (v *AlertingValues) ApplyDefaults() {
	if v.ActiveHoursStart == 0 && v.ActiveHoursEnd == 0 {
		v.ActiveHoursStart = 9
		v.ActiveHoursEnd = 21
	}
	if v.UTCOffsetHours == 0 {
		v.UTCOffsetHours = 3 // МСК
	}
}

// CatalogValues — белый список имён каталогов; первое имя считается каталогом
// по умолчанию.
type CatalogValues struct {
	Names []string `yaml:"names"`
}

func (v *CatalogValues) ApplyDefaults() {
	if len(v.Names) == 0 {
		v.Names = []string{"main"}
	}
}

func (v *CatalogValues) Default() string {
	return v.Names[0]
}

type ScheduleValues struct {
	FullSweepSpec    string `yaml:"full_sweep_spec"`
	DailySummarySpec string `yaml:"daily_summary_spec"`
}

func (v *ScheduleValues) ApplyDefaults() {
	if v.FullSweepSpec == "" {
		v.FullSweepSpec = "0 3 * * *"
	}
	if v.DailySummarySpec == "" {
		v.DailySummarySpec = "0 10 * * *"
	}
}
