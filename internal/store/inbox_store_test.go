package store

import (
	"testing"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

func TestSQLiteStore_Notifications_BulkCreateAndList(t *testing.T) {
	s := newTestSQLiteStore(t)

	records := []models.NotificationRecord{
		{
			RecipientID: "user-1",
			Type:        models.NotifTypeEstablishmentApproved,
			Title:       "تم قبول المنشأة",
			Body:        "تمت الموافقة على منشأتك",
			Metadata:    map[string]string{"establishment_id": "est-9"},
		},
		{
			RecipientID: "user-1",
			Type:        models.NotifTypeNewReview,
			Title:       "تقييم جديد",
			Body:        "لديك تقييم جديد",
		},
		{
			RecipientID: "user-2",
			Type:        models.NotifTypeSystemAnnouncement,
			Title:       "إعلان",
			Body:        "إعلان عام",
		},
	}
	if err := s.CreateNotifications(records); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}

	list, err := s.ListNotifications("user-1", 10, 0)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 notifications for user-1, got %d", len(list))
	}
	for _, n := range list {
		if n.ID == "" {
			t.Error("Expected generated notification ID")
		}
		if n.IsRead {
			t.Error("Expected new notifications unread")
		}
		if n.Priority != models.PriorityNormal {
			t.Errorf("Expected default priority 'normal', got %q", n.Priority)
		}
	}
	for _, n := range list {
		if n.Type == models.NotifTypeEstablishmentApproved {
			if n.Metadata["establishment_id"] != "est-9" {
				t.Errorf("Metadata round-trip failed: %v", n.Metadata)
			}
		}
	}
}

func TestSQLiteStore_Notifications_EmptyBatch(t *testing.T) {
	s := newTestSQLiteStore(t)

	if err := s.CreateNotifications(nil); err != nil {
		t.Fatalf("CreateNotifications with empty batch failed: %v", err)
	}
}

func TestSQLiteStore_Notifications_UnreadCountAndMarkRead(t *testing.T) {
	s := newTestSQLiteStore(t)

	records := []models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "أ", Body: "ب"},
		{RecipientID: "user-1", Type: models.NotifTypeAdApproved, Title: "ج", Body: "د"},
	}
	if err := s.CreateNotifications(records); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}

	count, err := s.CountUnreadNotifications("user-1")
	if err != nil {
		t.Fatalf("CountUnreadNotifications failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 unread, got %d", count)
	}

	list, _ := s.ListNotifications("user-1", 10, 0)
	if err := s.MarkNotificationRead(list[0].ID, "user-1", time.Now()); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	count, _ = s.CountUnreadNotifications("user-1")
	if count != 1 {
		t.Errorf("Expected 1 unread after mark, got %d", count)
	}

	// Marking an already-read notification is a no-op.
	if err := s.MarkNotificationRead(list[0].ID, "user-1", time.Now()); err != nil {
		t.Errorf("Expected no-op for already-read, got %v", err)
	}

	// Missing or foreign notification reports not found.
	if err := s.MarkNotificationRead("missing-id", "user-1", time.Now()); err != models.ErrNotificationNotFound {
		t.Errorf("Expected ErrNotificationNotFound, got %v", err)
	}
	if err := s.MarkNotificationRead(list[1].ID, "user-2", time.Now()); err != models.ErrNotificationNotFound {
		t.Errorf("Expected ErrNotificationNotFound for other user's notification, got %v", err)
	}
}

func TestSQLiteStore_Notifications_MarkAllRead(t *testing.T) {
	s := newTestSQLiteStore(t)

	records := []models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "أ", Body: "ب"},
		{RecipientID: "user-1", Type: models.NotifTypeAdApproved, Title: "ج", Body: "د"},
		{RecipientID: "user-2", Type: models.NotifTypeNewReview, Title: "هـ", Body: "و"},
	}
	if err := s.CreateNotifications(records); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}

	n, err := s.MarkAllNotificationsRead("user-1", time.Now())
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 marked, got %d", n)
	}
	count, _ := s.CountUnreadNotifications("user-2")
	if count != 1 {
		t.Errorf("Expected user-2 unread untouched, got %d", count)
	}
}

func TestSQLiteStore_Notifications_PurgeRead(t *testing.T) {
	s := newTestSQLiteStore(t)

	records := []models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "أ", Body: "ب"},
		{RecipientID: "user-1", Type: models.NotifTypeAdApproved, Title: "ج", Body: "د"},
	}
	if err := s.CreateNotifications(records); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}
	list, _ := s.ListNotifications("user-1", 10, 0)
	s.MarkNotificationRead(list[0].ID, "user-1", time.Now())

	// Cutoff in the future: only read rows qualify.
	n, err := s.PurgeReadNotificationsBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeReadNotificationsBefore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged, got %d", n)
	}
	remaining, _ := s.ListNotifications("user-1", 10, 0)
	if len(remaining) != 1 {
		t.Errorf("Expected unread notification kept, got %d rows", len(remaining))
	}
}

func TestSQLiteStore_Notifications_Delete(t *testing.T) {
	s := newTestSQLiteStore(t)

	records := []models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "أ", Body: "ب"},
	}
	if err := s.CreateNotifications(records); err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}
	list, _ := s.ListNotifications("user-1", 10, 0)

	if err := s.DeleteNotification(list[0].ID, "user-2"); err != models.ErrNotificationNotFound {
		t.Errorf("Expected ErrNotificationNotFound for other user, got %v", err)
	}
	if err := s.DeleteNotification(list[0].ID, "user-1"); err != nil {
		t.Fatalf("DeleteNotification failed: %v", err)
	}
	remaining, _ := s.ListNotifications("user-1", 10, 0)
	if len(remaining) != 0 {
		t.Errorf("Expected notification deleted, got %d rows", len(remaining))
	}
}

func TestSQLiteStore_Preferences_LazyCreate(t *testing.T) {
	s := newTestSQLiteStore(t)

	p, err := s.GetOrCreatePreferences("user-1")
	if err != nil {
		t.Fatalf("GetOrCreatePreferences failed: %v", err)
	}
	if !p.EnableAll || !p.EnablePush || !p.EnableEmail {
		t.Errorf("Expected default preferences fully enabled, got %+v", p)
	}
	if p.QuietEnabled {
		t.Error("Expected quiet hours disabled by default")
	}

	p.EnablePush = false
	p.QuietEnabled = true
	p.QuietStart = "22:00"
	p.QuietEnd = "07:00"
	p.DisabledCategories = []string{"ads"}
	if err := s.SavePreferences(p); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	// Second call returns the saved row, not a fresh default.
	again, err := s.GetOrCreatePreferences("user-1")
	if err != nil {
		t.Fatalf("Second GetOrCreatePreferences failed: %v", err)
	}
	if again.EnablePush {
		t.Error("Expected saved enable_push=false to survive")
	}
	if !again.QuietEnabled || again.QuietStart != "22:00" || again.QuietEnd != "07:00" {
		t.Errorf("Expected quiet hours persisted, got %+v", again)
	}
	if len(again.DisabledCategories) != 1 || again.DisabledCategories[0] != "ads" {
		t.Errorf("Expected disabled categories persisted, got %v", again.DisabledCategories)
	}
}

func TestSQLiteStore_Directory_UsersAndTokens(t *testing.T) {
	s := newTestSQLiteStore(t)

	users := []models.User{
		{ID: "u-tourist", Name: "زائر", Role: models.RoleTourist, PartnerStatus: models.PartnerStatusNone, Active: true},
		{ID: "u-partner", Name: "شريك", Email: "p@example.com", Role: models.RolePartner, PartnerStatus: models.PartnerStatusApproved, Active: true},
		{ID: "u-pending", Name: "قيد الانتظار", Role: models.RolePartner, PartnerStatus: models.PartnerStatusPending, Active: true},
		{ID: "u-staff", Name: "موظف", Role: models.RoleStaff, PartnerStatus: models.PartnerStatusNone, Active: true},
		{ID: "u-gone", Name: "محذوف", Role: models.RoleTourist, PartnerStatus: models.PartnerStatusNone, Active: false},
	}
	for _, u := range users {
		if err := s.CreateUser(u); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", u.ID, err)
		}
	}

	active, err := s.ListActiveUsers()
	if err != nil {
		t.Fatalf("ListActiveUsers failed: %v", err)
	}
	if len(active) != 4 {
		t.Errorf("Expected 4 active users, got %d", len(active))
	}

	partners, err := s.ListApprovedPartners()
	if err != nil {
		t.Fatalf("ListApprovedPartners failed: %v", err)
	}
	if len(partners) != 1 || partners[0].ID != "u-partner" {
		t.Errorf("Expected only the approved partner, got %v", partners)
	}

	staff, err := s.ListActiveStaff()
	if err != nil {
		t.Fatalf("ListActiveStaff failed: %v", err)
	}
	if len(staff) != 1 || staff[0].ID != "u-staff" {
		t.Errorf("Expected only staff, got %v", staff)
	}

	dt := models.DeviceToken{UserID: "u-tourist", Provider: models.ProviderFCM, Token: "tok-1"}
	if err := s.RegisterDeviceToken(dt); err != nil {
		t.Fatalf("RegisterDeviceToken failed: %v", err)
	}
	// Re-registering the same token is idempotent.
	if err := s.RegisterDeviceToken(dt); err != nil {
		t.Fatalf("Duplicate RegisterDeviceToken failed: %v", err)
	}
	tokens, err := s.ListDeviceTokens("u-tourist")
	if err != nil {
		t.Fatalf("ListDeviceTokens failed: %v", err)
	}
	if len(tokens) != 1 {
		t.Errorf("Expected 1 token, got %d", len(tokens))
	}
}

func TestSQLiteStore_Settings(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, exists, err := s.GetSetting("retention_days")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if exists {
		t.Error("Expected missing setting to report exists=false")
	}

	if err := s.SetSetting("retention_days", "14"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	v, exists, _ := s.GetSetting("retention_days")
	if !exists || v != "14" {
		t.Errorf("Expected retention_days=14, got %q exists=%v", v, exists)
	}

	if err := s.SetSetting("retention_days", "30"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}
	v, _, _ = s.GetSetting("retention_days")
	if v != "30" {
		t.Errorf("Expected overwritten value 30, got %q", v)
	}
}
