package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/nativeai/nativechat/app/models"
	"github.com/nativeai/nativechat/app/repository"
	"github.com/nativeai/nativechat/internal/pkg/extractor"
	"github.com/nativeai/nativechat/internal/pkg/llm"
	"github.com/nativeai/nativechat/internal/pkg/metrics/counter"
	"github.com/nativeai/nativechat/internal/pkg/prompt"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// HandleChat runs one chat turn: quota check, file extraction, prompt
// assembly, provider call, usage consumption, optional persistence.
// The quota gate sits before the provider call; consumption happens after the
// reply is in hand and never retracts it.
func HandleChat(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	summary, ok, errResp := checkQuota(c, user.UserID)
	if !ok {
		return errResp
	}

	rawHistory := c.FormValue("messages")
	deepSearch := parseBoolField(c.FormValue("deep_search"))
	reason := parseBoolField(c.FormValue("reason"))
	systemPrompt := strings.TrimSpace(c.FormValue("system_prompt"))
	if systemPrompt == "" {
		systemPrompt = appConfig.SystemPrompt
	}

	history := prompt.ParseHistory(rawHistory)
	if len(history) == 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "messages must contain at least one turn")
	}
	if appConfig.MaxHistoryMsgs > 0 && len(history) > appConfig.MaxHistoryMsgs {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("history exceeds the limit of %d turns", appConfig.MaxHistoryMsgs))
	}

	files, ok := readUploadedFiles(c)
	if !ok {
		return nil
	}
	var fileBlock string
	var attachmentNames []string
	if len(files) > 0 {
		extracted := make([]extractor.NamedFile, 0, len(files))
		for _, f := range files {
			extracted = append(extracted, extractor.NamedFile{
				Name:        f.name,
				ContentType: f.contentType,
				Data:        f.data,
			})
			attachmentNames = append(attachmentNames, f.name)
		}
		fileBlock = extractor.BuildFileBlock(extracted)
		history = prompt.MergeFileBlock(history, fileBlock)
	}

	messages := prompt.Build(systemPrompt, prompt.ModeInstructions(deepSearch, reason), history, appConfig.MaxPromptChars)

	ctx, cancel := requestContext(c, appConfig.ChatTimeout)
	defer cancel()

	result, err := llmClient.ChatCompletion(ctx, messages)
	if err != nil {
		return completionError(c, err)
	}

	if err := counter.AddChatRequest(); err != nil {
		fiberlog.Debugf("chat counter increment failed: %v", err)
	}

	if err := ledger.Consume(user.UserID, summary.Period, result.Usage); err != nil {
		fiberlog.Errorf("usage consume failed for user %d: %v", user.UserID, err)
	}

	conversationID := persistTurn(c, user.UserID, history, result.Text, files, attachmentNames)

	resp := fiber.Map{
		"reply": result.Text,
		"usage": fiber.Map{
			"tokens":   result.Usage,
			"reported": result.Reported,
		},
	}
	if conversationID != "" {
		resp["conversation_id"] = conversationID
	}
	return c.JSON(resp)
}

// completionError maps provider failures onto the error envelope.
func completionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return jsonError(c, fiber.StatusServiceUnavailable, "not_configured", "completion API key is not configured")
	}
	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		return jsonError(c, provErr.Status, "provider_error", provErr.Detail)
	}
	fiberlog.Errorf("completion failed: %v", err)
	return jsonError(c, fiber.StatusBadGateway, "provider_error", "completion request failed")
}

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

// readUploadedFiles pulls the files[] parts out of the multipart form,
// enforcing the count and per-file size limits. A false result means the
// refusal response has already been written.
func readUploadedFiles(c *fiber.Ctx) ([]uploadedFile, bool) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, true
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["files[]"]
	}
	if len(headers) == 0 {
		return nil, true
	}
	if len(headers) > appConfig.MaxFiles {
		_ = jsonError(c, fiber.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("at most %d files per request", appConfig.MaxFiles))
		return nil, false
	}

	files := make([]uploadedFile, 0, len(headers))
	for _, h := range headers {
		if h.Size > appConfig.MaxFileBytes {
			_ = jsonError(c, fiber.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("file %s exceeds the %d byte limit", h.Filename, appConfig.MaxFileBytes))
			return nil, false
		}
		data, err := readMultipartFile(h)
		if err != nil {
			fiberlog.Warnf("reading upload %s failed: %v", h.Filename, err)
			continue
		}
		files = append(files, uploadedFile{
			name:        h.Filename,
			contentType: h.Header.Get(fiber.HeaderContentType),
			data:        data,
		})
	}
	return files, true
}

func readMultipartFile(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// persistTurn saves the user and assistant turns when asked to. Every failure
// is logged and swallowed; persistence never blocks a delivered reply.
// Returns the conversation's public id, or "" when nothing was persisted.
func persistTurn(c *fiber.Ctx, userID uint, history []prompt.Message, reply string, files []uploadedFile, attachmentNames []string) string {
	save := parseBoolField(c.FormValue("save"))
	conversationRef := strings.TrimSpace(c.FormValue("conversation_id"))
	if !save && conversationRef == "" {
		return ""
	}

	lastUser := lastUserTurn(history)
	if lastUser == "" {
		return ""
	}

	repo := repository.GetGlobalFactory().GetConversationRepository()

	var conversation *models.Conversation
	if conversationRef != "" {
		existing, err := repo.GetByPublicID(conversationRef)
		if err != nil {
			fiberlog.Warnf("conversation %s lookup failed: %v", conversationRef, err)
			return ""
		}
		if existing.UserID != userID {
			// Not theirs. The turn already succeeded, it just stays
			// unpersisted.
			fiberlog.Warnf("conversation %s does not belong to user %d", conversationRef, userID)
			return ""
		}
		conversation = existing
	} else {
		conversation = models.NewConversation(userID, lastUser)
		if err := repo.Create(conversation); err != nil {
			fiberlog.Errorf("conversation create failed for user %d: %v", userID, err)
			return ""
		}
	}

	attachmentMeta := archiveAttachments(c, userID, files, attachmentNames)

	userMsg := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.ROLE_MSG_USER,
		Content:        lastUser,
		AttachmentMeta: attachmentMeta,
	}
	if err := repo.AppendMessage(userMsg); err != nil {
		fiberlog.Errorf("persisting user turn failed for conversation %d: %v", conversation.ID, err)
	}

	assistantMsg := &models.Message{
		ConversationID: conversation.ID,
		Role:           models.ROLE_MSG_ASSISTANT,
		Content:        reply,
	}
	if err := repo.AppendMessage(assistantMsg); err != nil {
		fiberlog.Errorf("persisting assistant turn failed for conversation %d: %v", conversation.ID, err)
	}

	if err := repo.Touch(conversation.ID); err != nil {
		fiberlog.Warnf("touching conversation %d failed: %v", conversation.ID, err)
	}

	return conversation.PublicID
}

// archiveAttachments ships attachment bytes to object storage best-effort and
// returns a comma-separated list of stored keys for the message metadata.
func archiveAttachments(c *fiber.Ctx, userID uint, files []uploadedFile, names []string) string {
	if attachStore == nil || len(files) == 0 {
		return strings.Join(names, ",")
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		if key := attachStore.Archive(c.UserContext(), userID, f.name, f.contentType, f.data); key != "" {
			keys = append(keys, key)
		} else {
			keys = append(keys, f.name)
		}
	}
	return strings.Join(keys, ",")
}

func lastUserTurn(history []prompt.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == prompt.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
