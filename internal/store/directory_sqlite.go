package store

import (
	"fmt"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

const userColumns = `id, name, email, role, partner_status, active`

func (s *SQLiteStore) CreateUser(u models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, nilIfEmpty(u.Email), u.Role, u.PartnerStatus, u.Active,
	)
	if err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) ListActiveUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("list active users failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *SQLiteStore) ListActiveStaff() ([]models.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE active = 1 AND role = ?`,
		models.RoleStaff,
	)
	if err != nil {
		return nil, fmt.Errorf("list active staff failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *SQLiteStore) ListApprovedPartners() ([]models.User, error) {
	// Approved partner status, not merely a partner-tagged role: stale and
	// unapproved accounts must not be notified.
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users WHERE active = 1 AND partner_status = ?`,
		models.PartnerStatusApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved partners failed: %w", err)
	}
	return collectUsers(rows)
}

func (s *SQLiteStore) RegisterDeviceToken(dt models.DeviceToken) error {
	if dt.CreatedAt.IsZero() {
		dt.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO device_tokens (user_id, provider, token, created_at)
		 VALUES (?, ?, ?, ?)`,
		dt.UserID, dt.Provider, dt.Token, dt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register device token failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDeviceTokens(userID string) ([]models.DeviceToken, error) {
	rows, err := s.db.Query(
		`SELECT user_id, provider, token, created_at FROM device_tokens
		 WHERE user_id = ? ORDER BY created_at ASC`,
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

func (s *SQLiteStore) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting failed: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting failed: %w", err)
	}
	return nil
}
