package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub_backend/internal/models"
	"github.com/freelancehub/freelancehub_backend/internal/notify"
	"github.com/freelancehub/freelancehub_backend/internal/realtime"
)

type NotificationHandler struct {
	DB         *gorm.DB
	Dispatcher *notify.Dispatcher
	Hub        *realtime.Hub
}

func NewNotificationHandler(db *gorm.DB, dispatcher *notify.Dispatcher, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{DB: db, Dispatcher: dispatcher, Hub: hub}
}

type CreateNotificationReq struct {
	ReceiverEmail string `json:"receiverEmail"`
	Message       string `json:"message"`
}

// Create is a compatibility endpoint for clients that push their own
// notifications. Lifecycle transitions emit theirs server-side; this
// exists for ad-hoc messages between the two parties.
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	if _, err := getActor(c); err != nil {
		return err
	}

	var req CreateNotificationReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid body")
	}
	receiver := strings.ToLower(strings.TrimSpace(req.ReceiverEmail))
	if receiver == "" || strings.TrimSpace(req.Message) == "" {
		return fail(c, fiber.StatusBadRequest, "receiverEmail and message are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Dispatcher.Notify(ctx, receiver, strings.TrimSpace(req.Message))
	return created(c, fiber.Map{"delivered": true})
}

// ListByEmail returns a user's notifications, own email only.
func (h *NotificationHandler) ListByEmail(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	email := strings.ToLower(c.Params("email"))
	if !actor.IsAdmin() && !strings.EqualFold(actor.Email, email) {
		return fail(c, fiber.StatusForbidden, "forbidden")
	}

	var notifications []models.Notification
	if err := h.DB.Where("receiver_email = ?", email).Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "failed to fetch notifications")
	}
	return ok(c, notifications)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	count := h.Dispatcher.UnreadCount(ctx, actor.Email)
	return ok(c, fiber.Map{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Dispatcher.MarkRead(ctx, id.String(), actor.Email); err != nil {
		if err == gorm.ErrRecordNotFound {
			return fail(c, fiber.StatusNotFound, "notification not found")
		}
		return fail(c, fiber.StatusInternalServerError, "failed to mark as read")
	}
	return ok(c, fiber.Map{"read": id})
}

// WebSocketUpgrade gates the notification stream: only upgrade requests
// holding a valid session reach the websocket handler.
func (h *NotificationHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		email, _ := c.Locals("email").(string)
		if email == "" {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocket streams notifications to the connected user. The write pump
// drains the hub channel; the read loop only detects disconnects.
func (h *NotificationHandler) WebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		email, _ := conn.Locals("email").(string)
		if email == "" {
			conn.Close()
			return
		}

		client := &realtime.Client{
			ID:    uuid.NewString(),
			Email: strings.ToLower(email),
			Conn:  realtime.NewWebSocketConn(conn),
			Send:  make(chan []byte, 16),
		}
		h.Hub.RegisterClient(client)
		// unregister closes Send, which lets the write pump drain out
		defer h.Hub.UnregisterClient(client)

		go func() {
			for payload := range client.Send {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	})
}
