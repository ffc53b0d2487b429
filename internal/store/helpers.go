package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

// isNoRows reports whether err wraps sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalMap encodes a payload/metadata map as JSON, empty maps as "".
func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

// unmarshalMap decodes a JSON payload/metadata column, tolerating blanks and
// malformed content (returns nil rather than failing the row scan).
func unmarshalMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

// marshalStrings encodes a string set as JSON, empty sets as "".
func marshalStrings(v []string) string {
	if len(v) == 0 {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// unmarshalStrings decodes a JSON string set column.
func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

// rowScanner lets scan helpers work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanOutboxEntry scans one outbox row in canonical column order.
func scanOutboxEntry(row rowScanner) (models.OutboxEntry, error) {
	var e models.OutboxEntry
	var payloadJSON, lastError, relatedType, relatedID sql.NullString
	var sentAt sql.NullTime
	err := row.Scan(
		&e.ID, &e.RecipientID, &e.Channel, &e.Provider, &e.Title, &e.Body,
		&payloadJSON, &e.Status, &e.Attempts, &e.MaxAttempts, &lastError,
		&e.ScheduledAt, &sentAt, &relatedType, &relatedID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return e, fmt.Errorf("scan outbox entry failed: %w", err)
	}
	e.Payload = unmarshalMap(payloadJSON.String)
	e.LastError = lastError.String
	e.RelatedType = relatedType.String
	e.RelatedID = relatedID.String
	if sentAt.Valid {
		e.SentAt = &sentAt.Time
	}
	return e, nil
}

// scanNotification scans one inbox row in canonical column order.
func scanNotification(row rowScanner) (models.NotificationRecord, error) {
	var n models.NotificationRecord
	var senderID, metadataJSON, relatedType, relatedID, actionURL sql.NullString
	var readAt sql.NullTime
	err := row.Scan(
		&n.ID, &n.RecipientID, &senderID, &n.Type, &n.Title, &n.Body, &n.Priority,
		&metadataJSON, &n.IsRead, &readAt, &relatedType, &relatedID, &actionURL, &n.CreatedAt,
	)
	if err != nil {
		return n, fmt.Errorf("scan notification failed: %w", err)
	}
	n.SenderID = senderID.String
	n.Metadata = unmarshalMap(metadataJSON.String)
	n.RelatedType = relatedType.String
	n.RelatedID = relatedID.String
	n.ActionURL = actionURL.String
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}

// scanPreferences scans one preference row in canonical column order.
func scanPreferences(row rowScanner) (models.PreferenceSet, error) {
	var p models.PreferenceSet
	var categoriesJSON, typesJSON, quietStart, quietEnd sql.NullString
	err := row.Scan(
		&p.UserID, &p.EnableAll, &p.EnablePush, &p.EnableEmail, &p.EnableSMS,
		&categoriesJSON, &typesJSON, &p.QuietEnabled, &quietStart, &quietEnd, &p.UpdatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("scan preferences failed: %w", err)
	}
	p.DisabledCategories = unmarshalStrings(categoriesJSON.String)
	p.DisabledTypes = unmarshalStrings(typesJSON.String)
	p.QuietStart = quietStart.String
	p.QuietEnd = quietEnd.String
	return p, nil
}

// scanUser scans one user row.
func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Name, &email, &u.Role, &u.PartnerStatus, &u.Active)
	if err != nil {
		return u, fmt.Errorf("scan user failed: %w", err)
	}
	u.Email = email.String
	return u, nil
}

// collectUsers drains a user result set.
func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user iteration failed: %w", err)
	}
	return users, nil
}
