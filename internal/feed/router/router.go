package router

import (
	"context"

	"chat_feed_sync/internal/feed/app"
	"chat_feed_sync/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册 feed 相关的路由
func RegisterRoutes(r *fiber.App, feedWebsocket *app.FeedWebsocketHandler, attachments *app.AttachmentHandler) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	r.Use(middlewares.JWTMiddleware())

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		feedWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/attachments", attachments.Upload)
	r.Get("/attachments/download", attachments.Download)
}
