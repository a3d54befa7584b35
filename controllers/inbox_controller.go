package controller

import (
	"context"
	"errors"
	"log"
	"time"

	"unimail/inbox"
	"unimail/models"
	"unimail/storage"
	"unimail/utils"

	"github.com/gofiber/fiber/v2"
)

type InboxController struct {
	svc     *inbox.Service
	snoozes *storage.Snoozes
	flags   *storage.NewMailFlags
	logger  *log.Logger
}

func NewInboxController(svc *inbox.Service, snoozes *storage.Snoozes, flags *storage.NewMailFlags, logger *log.Logger) *InboxController {
	return &InboxController{
		svc:     svc,
		snoozes: snoozes,
		flags:   flags,
		logger:  logger,
	}
}

type loadRequest struct {
	Account models.Account `json:"account" validate:"required"`
	Folder  string         `json:"folder"`
	Force   bool           `json:"force"`
}

// LoadMessages populates the inbox for one account and folder and returns
// the list rows plus pagination.
func (ic *InboxController) LoadMessages(c *fiber.Ctx) error {
	var req loadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.Account.ID == 0 || req.Account.Email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Account is required", nil)
	}

	folder := inbox.Folder(req.Folder)
	if err := ic.svc.LoadForAccount(c.Context(), req.Account, folder, req.Force); err != nil {
		ic.logger.Printf("load failed for %s/%s: %v", req.Account.Email, folder, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to load messages", nil)
	}

	store := ic.svc.Store()
	messages := store.Messages()
	if store.ActiveFolder() == inbox.FolderInbox {
		messages = ic.withoutSnoozed(req.Account.ID, messages)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"messages": messages,
		"folder":   store.ActiveFolder(),
		"loading":  store.Loading(),
	}))
}

// withoutSnoozed hides rows whose snooze is still active. A failed lookup
// keeps the row visible rather than losing mail from the view.
func (ic *InboxController) withoutSnoozed(accountID uint, msgs []models.Message) []models.Message {
	if ic.snoozes == nil {
		return msgs
	}
	now := time.Now()
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		active, err := ic.snoozes.Active(accountID, m.ID, now)
		if err != nil {
			ic.logger.Printf("snooze lookup for %s failed: %v", m.ID, err)
		}
		if !active {
			out = append(out, m)
		}
	}
	return out
}

// OpenMessage selects a message, returning the optimistic thread right away
// is a client concern; this endpoint resolves the full conversation.
func (ic *InboxController) OpenMessage(c *fiber.Ctx) error {
	var msg models.Message
	if err := c.BodyParser(&msg); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message payload", err)
	}
	if msg.ID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Message id is required", nil)
	}

	if err := ic.svc.OpenMessage(c.Context(), msg); err != nil {
		ic.logger.Printf("open message %s failed: %v", msg.ID, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to open message", nil)
	}

	store := ic.svc.Store()
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"thread":   store.CurrentThread(),
		"selected": store.Selected(),
	}))
}

// ToggleStar flips star state in memory and persists asynchronously.
func (ic *InboxController) ToggleStar(c *fiber.Ctx) error {
	var msg models.Message
	if err := c.BodyParser(&msg); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message payload", err)
	}
	if msg.ID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Message id is required", nil)
	}

	updated := ic.svc.ToggleStar(c.Context(), msg)
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": updated}))
}

// DeleteMessage removes a message provider-side and reloads the open folder.
func (ic *InboxController) DeleteMessage(c *fiber.Ctx) error {
	var req struct {
		Account models.Account `json:"account"`
		Message models.Message `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if req.Message.ID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Message id is required", nil)
	}

	if err := ic.svc.Delete(c.Context(), req.Account, req.Message); err != nil {
		ic.logger.Printf("delete %s failed: %v", req.Message.ID, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to delete message", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": req.Message.ID}))
}

// Snooze hides a message until the resolved wake time.
func (ic *InboxController) Snooze(c *fiber.Ctx) error {
	var req struct {
		AccountID uint   `json:"account_id"`
		MessageID string `json:"message_id"`
		Preset    string `json:"preset"`
		WakeAt    string `json:"wake_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var custom time.Time
	if req.WakeAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.WakeAt)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid wake_at timestamp", err)
		}
		custom = parsed
	}

	wake, err := inbox.SnoozeWakeTime(inbox.SnoozePreset(req.Preset), time.Now(), custom)
	if err != nil {
		var verr *inbox.ValidationError
		if errors.As(err, &verr) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, verr.Error(), nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve snooze time", err)
	}

	if err := ic.snoozes.Set(req.AccountID, req.MessageID, wake); err != nil {
		ic.logger.Printf("snooze %s failed: %v", req.MessageID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to snooze message", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"wake_at": wake.Format(time.RFC3339)}))
}

// NextPage advances the open folder one page.
func (ic *InboxController) NextPage(c *fiber.Ctx) error {
	return ic.turnPage(c, ic.svc.NextPage)
}

// PrevPage steps the open folder back one page.
func (ic *InboxController) PrevPage(c *fiber.Ctx) error {
	return ic.turnPage(c, ic.svc.PrevPage)
}

func (ic *InboxController) turnPage(c *fiber.Ctx, step func(ctx context.Context, account models.Account, folder inbox.Folder) error) error {
	var req loadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := step(c.Context(), req.Account, inbox.Folder(req.Folder)); err != nil {
		ic.logger.Printf("page turn failed for %s: %v", req.Account.Email, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to change page", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"messages": ic.svc.Store().Messages()}))
}

// Refresh re-dispatches the open folder, clearing the new-mail flag.
func (ic *InboxController) Refresh(c *fiber.Ctx) error {
	var req loadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := ic.svc.Refresh(c.Context(), req.Account); err != nil {
		ic.logger.Printf("refresh failed for %s: %v", req.Account.Email, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to refresh", nil)
	}
	if ic.flags != nil {
		if err := ic.flags.Clear(c.Context(), req.Account.ID); err != nil {
			ic.logger.Printf("clearing new-mail flag for %d: %v", req.Account.ID, err)
		}
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"messages": ic.svc.Store().Messages()}))
}
