package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/realtime"
)

const (
	unreadKeyPrefix = "notif:unread:"
	feedChannel     = "notif:feed"
)

// Dispatcher persists notifications and fans them out: an unread
// counter in redis plus a pub/sub message the websocket hub relays to
// connected receivers. Every transition emits exactly one call; a
// failed fan-out is logged and dropped, never surfaced, because the
// primary transition has already committed.
type Dispatcher struct {
	DB  *gorm.DB
	RDB *redis.Client
	Hub *realtime.Hub
}

func NewDispatcher(db *gorm.DB, rdb *redis.Client, hub *realtime.Hub) *Dispatcher {
	return &Dispatcher{DB: db, RDB: rdb, Hub: hub}
}

func (d *Dispatcher) Notify(ctx context.Context, receiverEmail, message string) {
	n := models.Notification{
		ReceiverEmail: receiverEmail,
		Message:       message,
		Status:        models.NotificationUnread,
	}
	if err := d.DB.WithContext(ctx).Create(&n).Error; err != nil {
		log.Printf("notify: failed to persist notification for %s: %v", receiverEmail, err)
		return
	}

	if d.RDB != nil {
		if err := d.RDB.Incr(ctx, unreadKeyPrefix+receiverEmail).Err(); err != nil {
			log.Printf("notify: failed to bump unread counter for %s: %v", receiverEmail, err)
		}
		payload, _ := json.Marshal(n)
		if err := d.RDB.Publish(ctx, feedChannel, payload).Err(); err != nil {
			log.Printf("notify: failed to publish notification for %s: %v", receiverEmail, err)
		}
	}

	if d.Hub != nil {
		d.Hub.SendToEmail(receiverEmail, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
	}
}

// UnreadCount reads the redis counter, falling back to a DB count when
// redis is unavailable or the counter is missing.
func (d *Dispatcher) UnreadCount(ctx context.Context, email string) int64 {
	if d.RDB != nil {
		if v, err := d.RDB.Get(ctx, unreadKeyPrefix+email).Int64(); err == nil {
			return v
		}
	}
	var count int64
	d.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("receiver_email = ? AND status = ?", email, models.NotificationUnread).
		Count(&count)
	return count
}

// MarkRead flips a notification to read and keeps the redis counter in
// step. Returns gorm.ErrRecordNotFound when nothing changed.
func (d *Dispatcher) MarkRead(ctx context.Context, id string, email string) error {
	res := d.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND receiver_email = ? AND status = ?", id, email, models.NotificationUnread).
		Update("status", models.NotificationRead)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	if d.RDB != nil {
		if err := d.RDB.Decr(ctx, unreadKeyPrefix+email).Err(); err != nil {
			log.Printf("notify: failed to decrement unread counter for %s: %v", email, err)
		}
	}
	return nil
}

// RelayFeed subscribes to the redis feed channel and forwards
// notifications to the hub. Lets a multi-instance deployment reach
// websockets connected to other instances. Blocks; run in a goroutine.
func (d *Dispatcher) RelayFeed(ctx context.Context) {
	if d.RDB == nil || d.Hub == nil {
		return
	}
	sub := d.RDB.Subscribe(ctx, feedChannel)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("notify: feed subscription error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			continue
		}
		d.Hub.SendToEmail(n.ReceiverEmail, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
	}
}
