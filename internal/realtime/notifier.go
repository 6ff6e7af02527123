package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mentorloop-backend/internal/directory"
	"mentorloop-backend/internal/email"
	"mentorloop-backend/internal/models"
	"mentorloop-backend/internal/store"
)

// PubSubNotifier is the production store.Notifier: it resolves the
// receiver's external identity and publishes committed events to the
// hub. When Redis is configured the event is also mirrored to the same
// channel name over PUBLISH so sibling processes can observe it; the
// mirror is fire-and-forget, not delivery coordination.
type PubSubNotifier struct {
	hub    *Hub
	dir    directory.Directory
	db     *gorm.DB
	redis  *redis.Client
	email  email.EmailClient
	logger echo.Logger
}

func NewPubSubNotifier(hub *Hub, dir directory.Directory, db *gorm.DB, redisClient *redis.Client, emailClient email.EmailClient, logger echo.Logger) *PubSubNotifier {
	return &PubSubNotifier{
		hub:    hub,
		dir:    dir,
		db:     db,
		redis:  redisClient,
		email:  emailClient,
		logger: logger,
	}
}

func (n *PubSubNotifier) Notify(ctx context.Context, event store.Event) error {
	switch ev := event.(type) {
	case store.FeedbackCreated:
		subject, err := n.dir.ResolveIdentity(ctx, ev.ReceiverUserID)
		if err != nil {
			return fmt.Errorf("resolving receiver identity: %w", err)
		}
		return n.publish(ctx, IdentityChannel(subject), Event{Type: ev.EventName(), Payload: ev})

	case store.DeleteRequestCreated:
		err := n.publish(ctx, AdminChannel, Event{Type: ev.EventName(), Payload: ev})
		n.alertAdmins(ev)
		return err

	default:
		// Unknown events are not an error; there is just nobody to tell.
		return nil
	}
}

func (n *PubSubNotifier) publish(ctx context.Context, channel string, event Event) error {
	delivered := n.hub.Publish(channel, event)
	if n.logger != nil {
		n.logger.Debugf("published %s to %s (%d clients)", event.Type, channel, delivered)
	}

	if n.redis == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.redis.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis mirror publish to %s: %w", channel, err)
	}
	return nil
}

// alertAdmins emails every admin about the new delete request. The
// email client is nil-safe and sends asynchronously; a lookup failure
// only costs the mail, never the event.
func (n *PubSubNotifier) alertAdmins(ev store.DeleteRequestCreated) {
	if n.email == nil || n.db == nil {
		return
	}
	admins, err := models.GetAdminEmails(n.db)
	if err != nil {
		if n.logger != nil {
			n.logger.Warnf("listing admin emails: %v", err)
		}
		return
	}
	for _, addr := range admins {
		n.email.SendDeleteRequestAlert(addr, ev.DeleteRequestID, ev.FeedbackID, ev.Reason)
	}
}
