package models

import "time"

// ContractDraft is the editable contract model for one booking card. The
// model itself is a JSON blob; only the booking id is structured so the
// draft can be looked up and overwritten wholesale.
type ContractDraft struct {
	BookingID string `gorm:"primaryKey"`
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
