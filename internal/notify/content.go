package notify

import (
	"strings"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

// Content is the rendered output of the content resolver for one event.
type Content struct {
	Type      models.NotificationType
	Title     string
	Body      string
	ActionURL string
}

// contentTemplate renders one event name. Placeholders use {key} syntax and
// are filled from the event payload; missing keys render as blank.
type contentTemplate struct {
	typ       models.NotificationType
	title     string
	body      string
	actionURL string
}

// The directory is Arabic-facing, so all template text is Arabic.
var contentTemplates = map[string]contentTemplate{
	"ESTABLISHMENT_APPROVED": {
		typ:       models.NotifTypeEstablishmentApproved,
		title:     "تم قبول المنشأة",
		body:      "تمت الموافقة على منشأتك {place_name} وأصبحت ظاهرة في الدليل",
		actionURL: "/establishments/{establishment_id}",
	},
	"ESTABLISHMENT_REJECTED": {
		typ:       models.NotifTypeEstablishmentRejected,
		title:     "تم رفض المنشأة",
		body:      "نأسف، لم تتم الموافقة على منشأتك {place_name}. السبب: {reason}",
		actionURL: "/establishments/{establishment_id}",
	},
	"NEW_REVIEW": {
		typ:       models.NotifTypeNewReview,
		title:     "تقييم جديد",
		body:      "أضاف {reviewer_name} تقييماً جديداً على {place_name}",
		actionURL: "/establishments/{establishment_id}/reviews",
	},
	"REVIEW_REPLY": {
		typ:       models.NotifTypeReviewReply,
		title:     "رد على تقييمك",
		body:      "ردت {place_name} على تقييمك",
		actionURL: "/establishments/{establishment_id}/reviews",
	},
	"REVIEW_REPORTED": {
		typ:       models.NotifTypeReviewReported,
		title:     "بلاغ عن تقييم",
		body:      "تم الإبلاغ عن تقييم على {place_name} بانتظار المراجعة",
		actionURL: "/admin/reports/{report_id}",
	},
	"AD_APPROVED": {
		typ:       models.NotifTypeAdApproved,
		title:     "تم قبول الإعلان",
		body:      "تمت الموافقة على إعلانك {ad_title} وبدأ عرضه",
		actionURL: "/ads/{ad_id}",
	},
	"AD_REJECTED": {
		typ:       models.NotifTypeAdRejected,
		title:     "تم رفض الإعلان",
		body:      "نأسف، لم تتم الموافقة على إعلانك {ad_title}. السبب: {reason}",
		actionURL: "/ads/{ad_id}",
	},
	"AD_EXPIRING": {
		typ:       models.NotifTypeAdExpiring,
		title:     "إعلانك على وشك الانتهاء",
		body:      "سينتهي عرض إعلانك {ad_title} خلال {days_left} أيام",
		actionURL: "/ads/{ad_id}",
	},
	"SURVEY_PUBLISHED": {
		typ:       models.NotifTypeSurveyPublished,
		title:     "استبيان جديد",
		body:      "شاركنا رأيك في استبيان: {survey_title}",
		actionURL: "/surveys/{survey_id}",
	},
	"REPORT_RESOLVED": {
		typ:       models.NotifTypeReportResolved,
		title:     "تمت معالجة بلاغك",
		body:      "تمت معالجة البلاغ الذي قدمته. النتيجة: {outcome}",
		actionURL: "/reports/{report_id}",
	},
	"PARTNER_WELCOME": {
		typ:       models.NotifTypePartnerWelcome,
		title:     "مرحباً بك شريكاً",
		body:      "مرحباً {partner_name}، تم تفعيل حسابك كشريك في دليل مدينة إب",
		actionURL: "/partner/dashboard",
	},
	"SYSTEM_ANNOUNCEMENT": {
		typ:       models.NotifTypeSystemAnnouncement,
		title:     "إعلان من الإدارة",
		body:      "{message}",
		actionURL: "{action_url}",
	},
}

// ResolveContent renders title, body and action URL for an event. Unknown
// event names fall back to payload-supplied values, then to generic defaults;
// missing payload keys render as blank. Never fails.
func ResolveContent(eventName string, payload map[string]string) Content {
	tmpl, ok := contentTemplates[eventName]
	if !ok {
		return fallbackContent(payload)
	}
	return Content{
		Type:      tmpl.typ,
		Title:     interpolate(tmpl.title, payload),
		Body:      interpolate(tmpl.body, payload),
		ActionURL: interpolate(tmpl.actionURL, payload),
	}
}

func fallbackContent(payload map[string]string) Content {
	c := Content{
		Type:      models.NotifTypeSystemAnnouncement,
		Title:     payload["title"],
		Body:      payload["message"],
		ActionURL: payload["action_url"],
	}
	if c.Title == "" {
		c.Title = "إشعار جديد"
	}
	if c.Body == "" {
		c.Body = "لديك إشعار جديد"
	}
	return c
}

// interpolate replaces {key} placeholders with payload values.
func interpolate(tmpl string, payload map[string]string) string {
	var b strings.Builder
	rest := tmpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		key := rest[open+1 : open+end]
		b.WriteString(payload[key])
		rest = rest[open+end+1:]
	}
	return b.String()
}
