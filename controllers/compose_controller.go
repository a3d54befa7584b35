package controller

import (
	"errors"
	"log"

	"unimail/inbox"
	"unimail/models"
	"unimail/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
)

type ComposeController struct {
	svc    *inbox.Service
	logger *log.Logger
}

func NewComposeController(svc *inbox.Service, logger *log.Logger) *ComposeController {
	return &ComposeController{svc: svc, logger: logger}
}

type composeOpenRequest struct {
	Source     models.Message `json:"source"`
	SelfEmails []string       `json:"self_emails"`
}

// OpenNew opens a blank composer.
func (cc *ComposeController) OpenNew(c *fiber.Ctx) error {
	var req struct {
		AccountID uint `json:"account_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	draft := cc.svc.Composer().OpenNew(c.Context(), req.AccountID)
	return c.JSON(utils.SuccessResponse(fiber.Map{"draft": draft}))
}

// Reply opens a reply draft addressed to the source's sender.
func (cc *ComposeController) Reply(c *fiber.Ctx) error {
	var req composeOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	self := inbox.NewSelfSet(req.SelfEmails...)
	draft := cc.svc.Composer().OpenReply(c.Context(), &req.Source, self)
	return c.JSON(utils.SuccessResponse(fiber.Map{"draft": draft}))
}

// ReplyAll opens a reply-all draft with the full recipient resolution and
// the quoted original.
func (cc *ComposeController) ReplyAll(c *fiber.Ctx) error {
	var req composeOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	self := inbox.NewSelfSet(req.SelfEmails...)
	draft := cc.svc.Composer().OpenReplyAll(c.Context(), &req.Source, self)
	return c.JSON(utils.SuccessResponse(fiber.Map{"draft": draft}))
}

// Forward opens a forward draft with inline images harvested into the
// draft's attachments.
func (cc *ComposeController) Forward(c *fiber.Ctx) error {
	var req composeOpenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	draft, err := cc.svc.Composer().OpenForward(c.Context(), &req.Source)
	if err != nil {
		cc.logger.Printf("forward build failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to build forward", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"draft": draft}))
}

// UpdateDraft syncs the user's edits into the open draft.
func (cc *ComposeController) UpdateDraft(c *fiber.Ctx) error {
	var draft models.ComposeDraft
	if err := c.BodyParser(&draft); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid draft payload", err)
	}
	if err := cc.svc.Composer().Update(draft); err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"draft": cc.svc.Composer().Current()}))
}

// Send validates and submits the open draft. Validation problems come back
// as 400 with the specific field; the composer stays open on any failure.
func (cc *ComposeController) Send(c *fiber.Ctx) error {
	if err := cc.svc.Send(c.Context()); err != nil {
		var verr *inbox.ValidationError
		if errors.As(err, &verr) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, verr.Error(), nil)
		}
		cc.logger.Printf("send failed: %v", err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send message", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"sent": true}))
}

// ValidateAddress pre-checks one recipient while the user is still typing:
// format first, then an MX lookup on the domain. The answer is advisory, so
// lookup problems surface as invalid rather than an error status.
func (cc *ComposeController) ValidateAddress(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return c.JSON(utils.SuccessResponse(fiber.Map{"valid": false, "reason": "malformed address"}))
	}
	ok, err := utils.ValidateMXRecords(req.Email)
	if err != nil || !ok {
		return c.JSON(utils.SuccessResponse(fiber.Map{"valid": false, "reason": "domain accepts no mail"}))
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"valid": true}))
}

// CloseDraft discards the open composer without saving.
func (cc *ComposeController) CloseDraft(c *fiber.Ctx) error {
	cc.svc.Composer().Close()
	return c.JSON(utils.SuccessResponse(fiber.Map{"closed": true}))
}
