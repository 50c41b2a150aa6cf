// docchat/sources/psql/dao/dao.session_cache.go
package dao

import (
	"context"
	"encoding/json"
	"fmt"

	"docchat/docchat/sources/psql/models"
	"docchat/docchat/utils/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionCacheDAO struct {
	DB *gorm.DB
}

func NewSessionCacheDAO(db *gorm.DB) *SessionCacheDAO {
	return &SessionCacheDAO{DB: db}
}

// PutSessions upserts a snapshot per session.
func (dao *SessionCacheDAO) PutSessions(ctx context.Context, sessions []types.SessionRecord) error {
	if len(sessions) == 0 {
		return nil
	}
	rows := make([]models.CachedSession, 0, len(sessions))
	for _, s := range sessions {
		row, err := toCachedSession(s)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"messages", "documents", "remote_updated_at", "cached_at"}),
		}).
		Create(&rows).Error
}

// GetSession returns the cached snapshot or gorm.ErrRecordNotFound.
func (dao *SessionCacheDAO) GetSession(ctx context.Context, id string) (*types.SessionRecord, error) {
	var row models.CachedSession
	if err := dao.DB.WithContext(ctx).Where("session_id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	rec, err := fromCachedSession(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSessions returns up to limit snapshots, most recently cached first.
func (dao *SessionCacheDAO) ListSessions(ctx context.Context, limit int) ([]types.SessionRecord, error) {
	var rows []models.CachedSession
	err := dao.DB.WithContext(ctx).
		Order("cached_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.SessionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := fromCachedSession(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (dao *SessionCacheDAO) DeleteSession(ctx context.Context, id string) error {
	return dao.DB.WithContext(ctx).Where("session_id = ?", id).Delete(&models.CachedSession{}).Error
}

func toCachedSession(s types.SessionRecord) (models.CachedSession, error) {
	msgs, err := json.Marshal(nonNil(s.Messages))
	if err != nil {
		return models.CachedSession{}, fmt.Errorf("encode messages: %w", err)
	}
	docs, err := json.Marshal(nonNil(s.Documents))
	if err != nil {
		return models.CachedSession{}, fmt.Errorf("encode documents: %w", err)
	}
	return models.CachedSession{
		SessionID:       s.SessionID,
		Messages:        datatypes.JSON(msgs),
		Documents:       datatypes.JSON(docs),
		RemoteUpdatedAt: s.UpdatedAt,
	}, nil
}

func fromCachedSession(row models.CachedSession) (types.SessionRecord, error) {
	rec := types.SessionRecord{SessionID: row.SessionID, UpdatedAt: row.RemoteUpdatedAt}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &rec.Messages); err != nil {
			return rec, fmt.Errorf("decode messages: %w", err)
		}
	}
	if len(row.Documents) > 0 {
		if err := json.Unmarshal(row.Documents, &rec.Documents); err != nil {
			return rec, fmt.Errorf("decode documents: %w", err)
		}
	}
	return rec, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
