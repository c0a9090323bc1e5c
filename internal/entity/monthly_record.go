package entity

type MonthlyRecord struct {
	SnowFlakeBase

	Period    string  `gorm:"size:32;uniqueIndex:idx_monthly_records_period_account"`
	AccountID int64   `gorm:"uniqueIndex:idx_monthly_records_period_account"`
	Account   Account `gorm:"foreignKey:AccountID"`

	Destination     string `gorm:"size:255"`
	Credential      string `gorm:"size:255"`
	QualifyingCount int
}
