package controller

import (
	"log"

	"unimail/inbox"
	"unimail/models"
	"unimail/storage"
	"unimail/utils"

	"github.com/gofiber/fiber/v2"
)

type AccountController struct {
	cache     *storage.AccountCache
	providers map[models.ProviderKind]inbox.Mailbox
	logger    *log.Logger
}

func NewAccountController(cache *storage.AccountCache, providers map[models.ProviderKind]inbox.Mailbox, logger *log.Logger) *AccountController {
	return &AccountController{cache: cache, providers: providers, logger: logger}
}

// ListAccounts returns the user's connected accounts. The cached list is
// served when present; a forced reload revalidates against each provider and
// rewrites the cache.
func (ac *AccountController) ListAccounts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	force := c.QueryBool("force")

	if !force {
		cached, err := ac.cache.Load(user.ID)
		if err != nil {
			ac.logger.Printf("account cache read failed for user %d: %v", user.ID, err)
		} else if cached != nil {
			return c.JSON(utils.SuccessResponse(fiber.Map{"accounts": cached, "cached": true}))
		}
	}

	var accounts []models.Account
	for kind, client := range ac.providers {
		fetched, err := client.FetchAccounts(c.Context())
		if err != nil {
			utils.LogError("account_fetch_failed", err, map[string]interface{}{
				"provider": string(kind),
				"user_id":  user.ID,
			})
			continue
		}
		accounts = append(accounts, fetched...)
	}
	if len(accounts) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "No accounts available", nil)
	}

	if err := ac.cache.Save(user.ID, accounts, nil); err != nil {
		ac.logger.Printf("account cache write failed for user %d: %v", user.ID, err)
	}
	utils.LogEvent("accounts_cached", map[string]interface{}{
		"user_id": user.ID,
		"count":   len(accounts),
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{"accounts": accounts, "cached": false}))
}

// Disconnect drops one account from the user's cached list.
func (ac *AccountController) Disconnect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	accountID := utils.ParseUint(c.Params("id"))
	if accountID == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", nil)
	}

	if err := ac.cache.Delete(user.ID, accountID); err != nil {
		ac.logger.Printf("disconnect failed for account %d: %v", accountID, err)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to disconnect account", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"disconnected": accountID}))
}
