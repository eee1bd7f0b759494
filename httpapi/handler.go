// Package httpapi exposes the admin command surface over HTTP. Admin
// authentication happens upstream; this layer only translates commands to
// orchestrator calls.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/meikuraledutech/colosseum"
	"github.com/meikuraledutech/colosseum/debate"
	"github.com/meikuraledutech/colosseum/observability"
)

// Handler routes admin commands to the orchestrator.
type Handler struct {
	orc   *debate.Orchestrator
	daily *debate.DailyScheduler
}

// NewHandler creates a Handler.
func NewHandler(orc *debate.Orchestrator, daily *debate.DailyScheduler) *Handler {
	return &Handler{orc: orc, daily: daily}
}

// Register mounts all routes on the app. Every request gets an id that
// follows it through the log.
func (h *Handler) Register(app *fiber.App) {
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		rid := c.GetRespHeader(fiber.HeaderXRequestID)
		c.SetUserContext(observability.WithRequestID(c.UserContext(), rid))
		return c.Next()
	})

	app.Post("/debates", h.StartDebate)
	app.Delete("/debates", h.StopDebate)
	app.Post("/debates/summary", h.SummaryNow)
	app.Get("/debates/status", h.Status)

	app.Get("/topics", h.ListTopics)
	app.Post("/topics", h.AddTopic)
	app.Post("/topics/rotate", h.RotateTopic)
	app.Post("/topics/generate", h.GenerateTopics)

	app.Get("/usage", h.Usage)

	app.Post("/daily/enable", h.EnableDaily)
	app.Post("/daily/disable", h.DisableDaily)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, colosseum.ErrSessionActive), errors.Is(err, colosseum.ErrTopicsExhausted):
		return fiber.StatusConflict
	case errors.Is(err, colosseum.ErrNoActiveSession):
		return fiber.StatusNotFound
	case errors.Is(err, colosseum.ErrInvalidConfig):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	observability.LoggerFromContext(c.UserContext()).Warn("admin command failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

type chatRef struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int64 `json:"thread_id"`
}

type startDebateRequest struct {
	chatRef
	Topic string `json:"topic"`
}

// StartDebate starts a session; the topic override is optional.
func (h *Handler) StartDebate(c *fiber.Ctx) error {
	var req startDebateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	session, err := h.orc.StartSession(c.UserContext(), req.ChatID, req.ThreadID, req.Topic)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// StopDebate ends a session. Stopping a chat with no session is a no-op.
func (h *Handler) StopDebate(c *fiber.Ctx) error {
	var req chatRef
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	err := h.orc.StopSession(c.UserContext(), req.ChatID, req.ThreadID)
	if errors.Is(err, colosseum.ErrNoActiveSession) {
		return c.JSON(fiber.Map{"stopped": false})
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"stopped": true})
}

// SummaryNow triggers an out-of-cadence judge summary.
func (h *Handler) SummaryNow(c *fiber.Ctx) error {
	var req chatRef
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	if err := h.orc.SummaryNow(c.UserContext(), req.ChatID, req.ThreadID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"requested": true})
}

// Status returns the active session projection.
func (h *Handler) Status(c *fiber.Ctx) error {
	chatID := int64(c.QueryInt("chat_id"))
	threadID := int64(c.QueryInt("thread_id"))

	session, err := h.orc.Status(c.UserContext(), chatID, threadID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(session)
}

// ListTopics returns the catalog in order.
func (h *Handler) ListTopics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"topics": h.orc.Topics()})
}

type addTopicRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// AddTopic appends a topic to the catalog.
func (h *Handler) AddTopic(c *fiber.Ctx) error {
	var req addTopicRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	topic, err := h.orc.AddTopic(c.UserContext(), colosseum.Topic{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(topic)
}

// RotateTopic advances the catalog pointer.
func (h *Handler) RotateTopic(c *fiber.Ctx) error {
	topic, err := h.orc.RotateTopic()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(topic)
}

type generateTopicsRequest struct {
	Count int `json:"count"`
}

// GenerateTopics asks the judge role for new topics.
func (h *Handler) GenerateTopics(c *fiber.Ctx) error {
	var req generateTopicsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	topics, err := h.orc.GenerateTopics(c.UserContext(), req.Count)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"topics": topics})
}

// Usage aggregates recorded usage events, optionally per session.
func (h *Handler) Usage(c *fiber.Ctx) error {
	totals, err := h.orc.UsageTotals(c.UserContext(), c.Query("session_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(totals)
}

type enableDailyRequest struct {
	ChatID int64 `json:"chat_id"`
}

// EnableDaily starts the daily rotation timer for a chat.
func (h *Handler) EnableDaily(c *fiber.Ctx) error {
	var req enableDailyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.ChatID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "chat_id required"})
	}

	h.daily.Enable(req.ChatID)
	return c.JSON(fiber.Map{"enabled": true})
}

// DisableDaily stops the daily rotation timer.
func (h *Handler) DisableDaily(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"enabled": false, "was_running": h.daily.Disable()})
}
