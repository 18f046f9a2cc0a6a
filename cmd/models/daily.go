package models

import "time"

// MemeOfTheDay records the pick for one calendar day. Day is the primary key
// ("2006-01-02"), so a second insert for the same day violates the constraint
// instead of producing two picks.
type MemeOfTheDay struct {
	Day       string    `gorm:"primaryKey;size:10" json:"day"`
	MemeID    string    `gorm:"column:meme_id;size:36;not null" json:"meme_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (MemeOfTheDay) TableName() string {
	return "meme_of_the_days"
}
