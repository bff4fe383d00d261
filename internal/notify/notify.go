// Package notify delivers admin approval e-mails. The API process publishes
// events to RabbitMQ; cmd/notifier consumes them and sends mail over SMTP.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	Exchange                  = "savora.events"
	RoutingAdminStatusChanged = "admin.status_changed"
	QueueAdminStatusEmails    = "admin_status_emails"
)

// AdminStatusChanged is published whenever a super-admin approves or
// rejects a restaurant admin.
type AdminStatusChanged struct {
	AdminID        uuid.UUID `json:"admin_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	RestaurantName string    `json:"restaurant_name"`
	Status         string    `json:"status"`
	ChangedAt      time.Time `json:"changed_at"`
}

// Notifier is fire-and-forget: implementations log failures and never
// return them to the caller.
type Notifier interface {
	AdminStatusChanged(ctx context.Context, ev AdminStatusChanged)
}

// LogNotifier only logs events. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) AdminStatusChanged(ctx context.Context, ev AdminStatusChanged) {
	log.Printf("notify: admin %s (%s) is now %s", ev.AdminID, ev.Email, ev.Status)
}
