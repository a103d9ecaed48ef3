package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/ephemeral-chats/internal/service"
	"github.com/yourorg/ephemeral-chats/internal/store"
)

const (
	defaultFirst = 10
	maxFirst     = 50
)

func parseFirst(c *fiber.Ctx) int {
	first, err := strconv.Atoi(c.Query("first"))
	if err != nil || first < 1 {
		return defaultFirst
	}
	if first > maxFirst {
		return maxFirst
	}
	return first
}

func parseOrder(c *fiber.Ctx) store.Order {
	if c.Query("order") == string(store.OrderDESC) {
		return store.OrderDESC
	}
	return store.OrderASC
}

func parseCursor(c *fiber.Ctx) service.QueryCursor {
	if c.Query("cursor") == string(service.CursorDate) {
		return service.CursorDate
	}
	return service.CursorAlpha
}
