// Package models defines the core data structures for the notification
// delivery engine: outbox entries, in-app notification records, user
// preference sets, provider result types and the shared enumerations.
package models

import (
	"errors"
)

// Channel identifies the delivery channel of an outbox entry.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in_app"
)

// IsValidChannel checks if the given channel is supported.
func IsValidChannel(c Channel) bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp:
		return true
	}
	return false
}

// ProviderName identifies a concrete delivery provider. The set is closed:
// adapters are resolved through a registration table, never by ad-hoc strings.
type ProviderName string

const (
	ProviderFCM       ProviderName = "fcm"
	ProviderOneSignal ProviderName = "onesignal"
	ProviderEmail     ProviderName = "email"
	ProviderNone      ProviderName = "none"
)

// IsValidProvider checks if the given provider name is supported.
func IsValidProvider(p ProviderName) bool {
	switch p {
	case ProviderFCM, ProviderOneSignal, ProviderEmail, ProviderNone:
		return true
	}
	return false
}

// Priority controls how a notification is surfaced in the inbox.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Error variables shared across modules for better error handling and testability.
var (
	ErrEntryNotFound        = errors.New("outbox entry not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrNoDeviceIdentity     = errors.New("no registered device identity")
	ErrEmptyRecipient       = errors.New("recipient cannot be empty")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK       APIStatus = "ok"
	APIStatusAccepted APIStatus = "accepted"
	APIStatusError    APIStatus = "error"
)

// APIResponse is the uniform JSON envelope returned by the HTTP surface.
type APIResponse struct {
	Status  APIStatus   `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Accepted creates an API response for fire-and-forget submissions.
func Accepted(message string) APIResponse {
	return APIResponse{Status: APIStatusAccepted, Message: message}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
