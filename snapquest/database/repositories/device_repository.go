package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/uptrace/bun"
)

type DeviceRepository interface {
	GetByToken(ctx context.Context, token string) (*models.Device, error)
	Create(ctx context.Context, token string) (*models.Device, error)
	GetOrCreate(ctx context.Context, token string) (*models.Device, error)
	SetUploadPermission(ctx context.Context, token string, allowed bool) error
}

type deviceRepository struct {
	*BaseRepository
}

func NewDeviceRepository(db *bun.DB) DeviceRepository {
	return &deviceRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *deviceRepository) GetByToken(ctx context.Context, token string) (*models.Device, error) {
	device := new(models.Device)
	err := r.db.NewSelect().
		Model(device).
		Where("token = ?", token).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "device", token, err)
	}

	return device, nil
}

func (r *deviceRepository) Create(ctx context.Context, token string) (*models.Device, error) {
	device := &models.Device{
		Token:     token,
		CreatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().Model(device).Exec(ctx)
	if err != nil {
		return nil, r.HandleError("create", "device", err)
	}

	return device, nil
}

// GetOrCreate resolves a token to its device row, minting the row on first
// sight. Two racing first requests may both insert; the unique token index
// makes the loser re-read the winner's row.
func (r *deviceRepository) GetOrCreate(ctx context.Context, token string) (*models.Device, error) {
	device, err := r.GetByToken(ctx, token)
	if err == nil {
		return device, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	device = &models.Device{
		Token:     token,
		CreatedAt: time.Now(),
	}
	_, err = r.db.NewInsert().
		Model(device).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, r.HandleError("create", "device", err)
	}
	if device.ID != 0 {
		return device, nil
	}

	return r.GetByToken(ctx, token)
}

func (r *deviceRepository) SetUploadPermission(ctx context.Context, token string, allowed bool) error {
	res, err := r.db.NewUpdate().
		Model((*models.Device)(nil)).
		Set("can_upload = ?", allowed).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return r.HandleErrorWithID("update", "device", token, err)
	}

	rows, err := res.RowsAffected()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return r.HandleError("update", "device", err)
	}
	if rows == 0 {
		return &NotFoundError{Entity: "device", ID: token}
	}

	return nil
}
