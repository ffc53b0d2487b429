package store

import (
	"fmt"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

func (s *PostgresStore) CreateUser(u models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, nilIfEmpty(u.Email), u.Role, u.PartnerStatus, u.Active,
	)
	if err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) ListActiveUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("list active users failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) ListActiveStaff() ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE active AND role = $1`,
		models.RoleStaff,
	)
	if err != nil {
		return nil, fmt.Errorf("list active staff failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) ListApprovedPartners() ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE active AND partner_status = $1`,
		models.PartnerStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved partners failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *PostgresStore) RegisterDeviceToken(dt models.DeviceToken) error {
	if dt.CreatedAt.IsZero() {
		dt.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO device_tokens (user_id, provider, token, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, provider, token) DO NOTHING`,
		dt.UserID, dt.Provider, dt.Token, dt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register device token failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDeviceTokens(userID string) ([]models.DeviceToken, error) {
	rows, err := s.db.Query(
		`SELECT user_id, provider, token, created_at FROM device_tokens
		 WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list device tokens failed: %w", err)
	}
	defer rows.Close()

	var tokens []models.DeviceToken
	for rows.Next() {
		var dt models.DeviceToken
		if err := rows.Scan(&dt.UserID, &dt.Provider, &dt.Token, &dt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device token failed: %w", err)
		}
		tokens = append(tokens, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("device token iteration failed: %w", err)
	}
	return tokens, nil
}

func (s *PostgresStore) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting failed: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting failed: %w", err)
	}
	return nil
}
