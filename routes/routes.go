package routes

import (
	"log"
	"os"

	controller "unimail/controllers"
	"unimail/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
)

// SetupInboxRoutes wires the unified-inbox surface.
func SetupInboxRoutes(app *fiber.App, ic *controller.InboxController, cc *controller.ComposeController, ac *controller.AccountController, hub *controller.NotifyHub) {
	routeLogger := log.New(os.Stdout, "ROUTES: ", log.Ldate|log.Ltime|log.Lshortfile)

	inboxGroup := app.Group("/inbox", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.Protected())

	inboxGroup.Post("/load", ic.LoadMessages)
	inboxGroup.Post("/open", ic.OpenMessage)
	inboxGroup.Post("/star", ic.ToggleStar)
	inboxGroup.Post("/delete", ic.DeleteMessage)
	inboxGroup.Post("/snooze", ic.Snooze)
	inboxGroup.Post("/page/next", ic.NextPage)
	inboxGroup.Post("/page/prev", ic.PrevPage)
	inboxGroup.Post("/refresh", ic.Refresh)

	composeGroup := app.Group("/compose", middleware.Protected())
	composeGroup.Post("/new", cc.OpenNew)
	composeGroup.Post("/reply", cc.Reply)
	composeGroup.Post("/reply-all", cc.ReplyAll)
	composeGroup.Post("/forward", cc.Forward)
	composeGroup.Put("/draft", cc.UpdateDraft)
	composeGroup.Post("/send", cc.Send)
	composeGroup.Post("/validate-address", cc.ValidateAddress)
	composeGroup.Delete("/draft", cc.CloseDraft)

	accountGroup := app.Group("/accounts", middleware.Protected())
	accountGroup.Get("/", ac.ListAccounts)
	accountGroup.Delete("/:id", ac.Disconnect)

	// New-mail push channel; upgrade gate first
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/notify", websocket.New(hub.Handler()))

	routeLogger.Println("Inbox routes initialized successfully")
}
