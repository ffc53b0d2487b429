package models

import (
	"time"
)

// NotificationType is the closed enumeration of in-app notification kinds
// produced by the directory's business events.
type NotificationType string

const (
	NotifTypeEstablishmentApproved NotificationType = "establishment_approved"
	NotifTypeEstablishmentRejected NotificationType = "establishment_rejected"
	NotifTypeNewReview             NotificationType = "new_review"
	NotifTypeReviewReply           NotificationType = "review_reply"
	NotifTypeReviewReported        NotificationType = "review_reported"
	NotifTypeAdApproved            NotificationType = "ad_approved"
	NotifTypeAdRejected            NotificationType = "ad_rejected"
	NotifTypeAdExpiring            NotificationType = "ad_expiring"
	NotifTypeSurveyPublished       NotificationType = "survey_published"
	NotifTypeReportResolved        NotificationType = "report_resolved"
	NotifTypePartnerWelcome        NotificationType = "partner_welcome"
	NotifTypeSystemAnnouncement    NotificationType = "system_announcement"
)

// NotificationCategory groups notification types for per-category opt-outs.
type NotificationCategory string

const (
	CategoryEstablishments NotificationCategory = "establishments"
	CategoryReviews        NotificationCategory = "reviews"
	CategoryAds            NotificationCategory = "ads"
	CategorySurveys        NotificationCategory = "surveys"
	CategoryReports        NotificationCategory = "reports"
	CategorySystem         NotificationCategory = "system"
)

// typeCategories maps every notification type to its opt-out category.
var typeCategories = map[NotificationType]NotificationCategory{
	NotifTypeEstablishmentApproved: CategoryEstablishments,
	NotifTypeEstablishmentRejected: CategoryEstablishments,
	NotifTypeNewReview:             CategoryReviews,
	NotifTypeReviewReply:           CategoryReviews,
	NotifTypeReviewReported:        CategoryReviews,
	NotifTypeAdApproved:            CategoryAds,
	NotifTypeAdRejected:            CategoryAds,
	NotifTypeAdExpiring:            CategoryAds,
	NotifTypeSurveyPublished:       CategorySurveys,
	NotifTypeReportResolved:        CategoryReports,
	NotifTypePartnerWelcome:        CategorySystem,
	NotifTypeSystemAnnouncement:    CategorySystem,
}

// CategoryOf returns the opt-out category for a notification type.
// Unknown types fall into the system category.
func CategoryOf(t NotificationType) NotificationCategory {
	if c, ok := typeCategories[t]; ok {
		return c
	}
	return CategorySystem
}

// NotificationRecord is an in-app inbox item. It is persisted independently of
// any OutboxEntry: the at-least-once delivery guarantee applies to the outbox
// only, and no referential consistency is enforced between the two.
type NotificationRecord struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	SenderID    string            `json:"sender_id,omitempty"`
	Type        NotificationType  `json:"type"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Priority    Priority          `json:"priority"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IsRead      bool              `json:"is_read"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
	RelatedType string            `json:"related_type,omitempty"`
	RelatedID   string            `json:"related_id,omitempty"`
	ActionURL   string            `json:"action_url,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
