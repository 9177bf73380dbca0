package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"monitoring-service/internal/config"
	"monitoring-service/internal/db"
	"monitoring-service/internal/dispatch"
	"monitoring-service/internal/logging"
	"monitoring-service/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	db         *db.DB
	dispatcher *dispatch.Dispatcher
	hub        *dispatch.Hub
	logger     *logging.Logger
	config     config.Config
}

func NewHandler(database *db.DB, dispatcher *dispatch.Dispatcher, hub *dispatch.Hub, logger *logging.Logger, cfg config.Config) *Handler {
	return &Handler{
		db:         database,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		config:     cfg,
	}
}

type createAlertRequest struct {
	ChatID   int64  `json:"chat_id"`
	Message  string `json:"message" binding:"required"`
	Priority string `json:"priority"`
}

// CreateAlert is the ad-hoc enqueue entry point. One-shot commands and other
// external collaborators use it so every outbound notification shares the
// dispatcher's delivery and audit path.
func (h *Handler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid alert request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := models.PriorityNormal
	if req.Priority != "" {
		var err error
		if priority, err = models.ParsePriority(req.Priority); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	chatID := req.ChatID
	if chatID == 0 {
		chatID = h.config.Telegram.AlertChatID
	}

	task := models.AlertTask{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		Message:  req.Message,
		Priority: priority,
	}
	h.dispatcher.Enqueue(task)
	h.logger.Infof("Ad-hoc alert enqueued: %s", task.ID)
	c.JSON(http.StatusAccepted, gin.H{"id": task.ID})
}

type createReminderRequest struct {
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text" binding:"required"`
	FireAt time.Time `json:"fire_at" binding:"required"`
}

func (h *Handler) CreateReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid reminder request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chatID := req.ChatID
	if chatID == 0 {
		chatID = h.config.Telegram.AlertChatID
	}

	reminder, err := h.db.CreateReminder(c.Request.Context(), models.Reminder{
		ChatID: chatID,
		Text:   req.Text,
		FireAt: req.FireAt,
	})
	if err != nil {
		h.logger.Errorf("Create reminder failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Infof("Created reminder %d for chat %d", reminder.ID, reminder.ChatID)
	c.JSON(http.StatusCreated, reminder)
}

func (h *Handler) GetReminders(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.DefaultQuery("chat_id", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
		return
	}
	if chatID == 0 {
		chatID = h.config.Telegram.AlertChatID
	}

	reminders, err := h.db.ListRemindersByChat(c.Request.Context(), chatID, 50)
	if err != nil {
		h.logger.Errorf("List reminders failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reminders)
}

func (h *Handler) GetHealthStates(c *gin.Context) {
	states, err := h.db.ListHealthStates(c.Request.Context())
	if err != nil {
		h.logger.Errorf("List health states failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, states)
}

func (h *Handler) GetAudit(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	onlyError := c.DefaultQuery("only_error", "false") == "true"

	records, err := h.db.ListAudit(c.Request.Context(), limit, onlyError)
	if err != nil {
		h.logger.Errorf("List audit failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// AlertFeed upgrades to a WebSocket and streams delivered alerts.
func (h *Handler) AlertFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)
	go func() {
		defer func() {
			h.hub.Remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
