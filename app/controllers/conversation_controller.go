package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/nativeai/nativechat/app/repository"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

const defaultConversationPageSize = 50

// HandleListConversations returns the caller's conversations, most recently
// active first.
func HandleListConversations(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultConversationPageSize)))
	if limit <= 0 || limit > defaultConversationPageSize*4 {
		limit = defaultConversationPageSize
	}
	if offset < 0 {
		offset = 0
	}

	repo := repository.GetGlobalFactory().GetConversationRepository()
	conversations, err := repo.ListByUserID(user.UserID, offset, limit)
	if err != nil {
		fiberlog.Errorf("listing conversations for user %d failed: %v", user.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "conversation listing failed")
	}

	items := make([]fiber.Map, 0, len(conversations))
	for _, conv := range conversations {
		items = append(items, fiber.Map{
			"id":         conv.PublicID,
			"title":      conv.Title,
			"created_at": conv.CreatedAt,
			"updated_at": conv.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"conversations": items})
}

// HandleGetConversationMessages returns the full message history of one
// conversation. Callers only ever see their own threads; anything else is a
// 404 so conversation ids cannot be probed.
func HandleGetConversationMessages(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	publicID := c.Params("id")
	if publicID == "" {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "conversation id missing")
	}

	repo := repository.GetGlobalFactory().GetConversationRepository()
	conversation, err := repo.GetByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "conversation not found")
		}
		fiberlog.Errorf("conversation %s lookup failed: %v", publicID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "conversation lookup failed")
	}
	if conversation.UserID != user.UserID {
		return jsonError(c, fiber.StatusNotFound, "not_found", "conversation not found")
	}

	messages, err := repo.GetMessages(conversation.ID)
	if err != nil {
		fiberlog.Errorf("loading messages for conversation %d failed: %v", conversation.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "message loading failed")
	}

	items := make([]fiber.Map, 0, len(messages))
	for _, msg := range messages {
		item := fiber.Map{
			"role":       msg.Role,
			"content":    msg.Content,
			"created_at": msg.CreatedAt,
		}
		if msg.AttachmentMeta != "" {
			item["attachments"] = msg.AttachmentMeta
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{
		"id":       conversation.PublicID,
		"title":    conversation.Title,
		"messages": items,
	})
}
