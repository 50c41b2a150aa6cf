package models

import (
	"time"

	"gorm.io/datatypes"
)

// CachedSession is the last snapshot of a backend session seen by this client.
type CachedSession struct {
	SessionID       string         `json:"session_id" gorm:"type:varchar(255);primaryKey"`
	Messages        datatypes.JSON `json:"messages"`
	Documents       datatypes.JSON `json:"documents"`
	RemoteUpdatedAt string         `json:"updated_at" gorm:"type:varchar(64)"`
	CachedAt        time.Time      `json:"cached_at" gorm:"autoUpdateTime"`
}

func (CachedSession) TableName() string {
	return "cached_sessions"
}
