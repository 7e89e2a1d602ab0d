package storage

import (
	"context"
	"database/sql"
	"fmt"

	"pricewatch_api/internal/pricing/business/models"
)

// AdminRepository хранит получателей уведомлений. Супер-админ задаётся
// конфигурацией, в таблице может отсутствовать и удалению не подлежит.
type AdminRepository struct {
	db           *sql.DB
	superAdminID int64
}

func NewAdminRepository(db *sql.DB, superAdminID int64) *AdminRepository {
	return &AdminRepository{db: db, superAdminID: superAdminID}
}

func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id, COALESCE(username, '') FROM admins ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []models.Admin
	seenSuper := false
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ChatID, &a.Username); err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		if a.ChatID == r.superAdminID {
			seenSuper = true
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !seenSuper && r.superAdminID != 0 {
		admins = append(admins, models.Admin{ChatID: r.superAdminID})
	}
	return admins, nil
}

// ListChatIDs — все chat_id для рассылки, супер-админ включается всегда.
func (r *AdminRepository) ListChatIDs(ctx context.Context) ([]int64, error) {
	admins, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ChatID)
	}
	return ids, nil
}

func (r *AdminRepository) Add(ctx context.Context, chatID int64, username string) error {
	query := `
		INSERT INTO admins (chat_id, username)
		VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET username = EXCLUDED.username`
	if _, err := r.db.ExecContext(ctx, query, chatID, username); err != nil {
		return fmt.Errorf("add admin %d: %w", chatID, err)
	}
	return nil
}

var ErrSuperAdminRemoval = fmt.Errorf("super admin cannot be removed")

func (r *AdminRepository) Remove(ctx context.Context, chatID int64) error {
	if chatID == r.superAdminID && r.superAdminID != 0 {
		return ErrSuperAdminRemoval
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("remove admin %d: %w", chatID, err)
	}
	return nil
}
