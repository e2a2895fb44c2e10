package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ellavondegurechaff/snapquest/snapquest/database/models"
	"github.com/uptrace/bun"
)

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.Account, error)

	// BindDevice appends a device binding if absent; it never rebinds a
	// token away from a previously bound account.
	BindDevice(ctx context.Context, accountID int64, deviceToken string) error
	GetByDeviceToken(ctx context.Context, deviceToken string) (*models.Account, error)
}

type accountRepository struct {
	*BaseRepository
}

func NewAccountRepository(db *bun.DB) AccountRepository {
	return &accountRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("a.id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "account", id, err)
	}

	return account, nil
}

func (r *accountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("username = ?", username).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "account", username, err)
	}

	return account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(account).Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return &ConflictError{Entity: "account", Field: "username", Value: account.Username}
		}
		return r.HandleError("create", "account", err)
	}

	return nil
}

// Delete removes the account, its device bindings, and every photo it owns,
// pending or public, in one transaction.
func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Account)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return &NotFoundError{Entity: "account", ID: id}
		}

		if _, err := tx.NewDelete().
			Model((*models.AccountDevice)(nil)).
			Where("account_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.PendingPhoto)(nil)).
			Where("account_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.GalleryPhoto)(nil)).
			Where("account_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return r.HandleErrorWithID("delete", "account", id, err)
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.NewSelect().
		Model(&accounts).
		Order("username ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list", "account", err)
	}

	return accounts, nil
}

func (r *accountRepository) BindDevice(ctx context.Context, accountID int64, deviceToken string) error {
	binding := &models.AccountDevice{
		AccountID:   accountID,
		DeviceToken: deviceToken,
		CreatedAt:   time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(binding).
		On("CONFLICT (account_id, device_token) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return r.HandleError("bind_device", "account", err)
	}

	return nil
}

// GetByDeviceToken resolves a device token through its bindings. A token
// bound to several accounts resolves to the most recent binding.
func (r *accountRepository) GetByDeviceToken(ctx context.Context, deviceToken string) (*models.Account, error) {
	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Join("JOIN account_devices ad ON ad.account_id = a.id").
		Where("ad.device_token = ?", deviceToken).
		Order("ad.created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "account", ID: deviceToken}
		}
		return nil, r.HandleError("get_by_device", "account", err)
	}

	return account, nil
}
