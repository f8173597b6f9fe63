package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrConversion is returned when audio input cannot be normalized for the
// transcription provider. Conversion failures abort the transcription request
// before any quota is charged.
var ErrConversion = errors.New("extractor: audio conversion failed")

// formats the transcription provider accepts as-is
var nativeAudioExt = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

// NormalizeAudio remuxes arbitrary audio input into 16 kHz mono WAV via
// ffmpeg. Inputs already in an accepted container pass through untouched.
// Returns the audio bytes and the filename to submit.
func NormalizeAudio(name string, raw []byte) ([]byte, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty audio payload", ErrConversion)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if nativeAudioExt[ext] {
		return raw, name, nil
	}

	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, "", fmt.Errorf("%w: ffmpeg not available", ErrConversion)
	}

	var out, stderr bytes.Buffer
	cmd := exec.Command(path, "-i", "pipe:0", "-ar", "16000", "-ac", "1", "-f", "wav", "pipe:1")
	cmd.Stdin = bytes.NewReader(raw)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 300 {
			detail = detail[len(detail)-300:]
		}
		return nil, "", fmt.Errorf("%w: %s", ErrConversion, detail)
	}
	if out.Len() == 0 {
		return nil, "", fmt.Errorf("%w: ffmpeg produced no output", ErrConversion)
	}

	base := strings.TrimSuffix(filepath.Base(name), ext)
	if base == "" {
		base = "audio"
	}
	return out.Bytes(), base + ".wav", nil
}
