package events

import "time"

type NotificationType string

const (
	NotificationAnswerCreation     NotificationType = "answer_creation"
	NotificationAnswerReassigned   NotificationType = "answer_reassigned"
	NotificationPeerReviewAssigned NotificationType = "peer_review_assigned"
	NotificationRerouteAssigned    NotificationType = "reroute_assigned"
	NotificationRerouteDecided     NotificationType = "reroute_decided"
)

// Notification is the payload delivered to a reviewer. Delivery is best effort.
type Notification struct {
	ReviewerID string           `json:"reviewer_id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	EntityID   string           `json:"entity_id"`
	Type       NotificationType `json:"type"`
	CreatedAt  time.Time        `json:"created_at"`
}
