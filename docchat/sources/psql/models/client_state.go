package models

import "time"

// ClientState is the single persisted row holding the bearer token and the
// active session id.
type ClientState struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"type:text"`
	SessionID string    `json:"session_id" gorm:"type:varchar(255)"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ClientState) TableName() string {
	return "client_state"
}
