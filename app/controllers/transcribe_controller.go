package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/nativeai/nativechat/internal/pkg/extractor"
	"github.com/nativeai/nativechat/internal/pkg/metrics/counter"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// HandleTranscribe turns an uploaded audio file into text, translating the
// transcript when the detected language differs from the requested one.
// Conversion failures cost no quota because they happen before the provider
// call. Any panic inside the pipeline surfaces as a typed error payload, not
// a bare 500.
func HandleTranscribe(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fiberlog.Errorf("transcription pipeline panicked: %v", r)
			err = jsonError(c, fiber.StatusInternalServerError, "transcribe_internal", fmt.Sprintf("%T: %v", r, r))
		}
	}()

	user := usercontext.GetUserContext(c)

	summary, ok, errResp := checkQuota(c, user.UserID)
	if !ok {
		return errResp
	}

	header, err := c.FormFile("audio")
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "audio file is required")
	}
	if header.Size > appConfig.MaxFileBytes {
		return jsonError(c, fiber.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("audio exceeds the %d byte limit", appConfig.MaxFileBytes))
	}
	raw, err := readMultipartFile(header)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "audio file could not be read")
	}

	audio, filename, err := extractor.NormalizeAudio(header.Filename, raw)
	if err != nil {
		if errors.Is(err, extractor.ErrConversion) {
			return jsonError(c, fiber.StatusUnsupportedMediaType, "conversion_error", "audio format could not be converted")
		}
		fiberlog.Errorf("audio normalization failed: %v", err)
		return jsonError(c, fiber.StatusUnprocessableEntity, "conversion_error", "audio could not be processed")
	}

	targetLang := strings.TrimSpace(c.FormValue("language"))

	ctx, cancel := requestContext(c, appConfig.TranscribeTimeout)
	defer cancel()

	result, err := llmClient.TranscribeAndTranslate(ctx, audio, filename, targetLang)
	if err != nil {
		return completionError(c, err)
	}

	if err := counter.AddTranscribeRequest(); err != nil {
		fiberlog.Debugf("transcribe counter increment failed: %v", err)
	}

	if err := ledger.Consume(user.UserID, summary.Period, result.Usage); err != nil {
		fiberlog.Errorf("usage consume failed for user %d: %v", user.UserID, err)
	}

	resp := fiber.Map{
		"text":     result.Text,
		"language": result.Language,
		"usage": fiber.Map{
			"tokens":   result.Usage,
			"reported": result.Reported,
		},
	}
	if result.Translated != "" {
		resp["translated"] = result.Translated
	}
	return c.JSON(resp)
}
