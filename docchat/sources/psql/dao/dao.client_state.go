// docchat/sources/psql/dao/dao.client_state.go
package dao

import (
	"context"
	"errors"

	"docchat/docchat/sources/psql/models"
	"docchat/docchat/utils/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const clientStateRow = 1

// ClientStateDAO keeps the token and active session id in a single row.
type ClientStateDAO struct {
	DB *gorm.DB
}

func NewClientStateDAO(db *gorm.DB) *ClientStateDAO {
	return &ClientStateDAO{DB: db}
}

// Load returns the stored state, zero when nothing was saved yet.
func (dao *ClientStateDAO) Load(ctx context.Context) (types.ClientState, error) {
	var row models.ClientState
	err := dao.DB.WithContext(ctx).First(&row, clientStateRow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ClientState{}, nil
	}
	if err != nil {
		return types.ClientState{}, err
	}
	return types.ClientState{Token: row.Token, SessionID: row.SessionID}, nil
}

func (dao *ClientStateDAO) Save(ctx context.Context, st types.ClientState) error {
	row := models.ClientState{ID: clientStateRow, Token: st.Token, SessionID: st.SessionID}
	return dao.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "session_id", "updated_at"}),
		}).
		Create(&row).Error
}

func (dao *ClientStateDAO) Clear(ctx context.Context) error {
	return dao.DB.WithContext(ctx).Delete(&models.ClientState{}, clientStateRow).Error
}
