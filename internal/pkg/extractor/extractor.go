package extractor

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"github.com/ledongthuc/pdf"
)

const (
	maxFileChars  = 8000
	maxPlainChars = 4000
	maxPDFChars   = 12000
)

// ExtractText turns an uploaded file into a bounded text block for prompt
// injection. It never fails: unreadable inputs yield a placeholder so the
// model at least knows a file was attached.
func ExtractText(name string, raw []byte, contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	ext := strings.ToLower(filepath.Ext(name))
	if name == "" {
		name = "(unnamed)"
	}

	switch {
	case ct == "application/pdf" || ext == ".pdf":
		return extractPDF(name, raw)
	case ct == "image/png" || ct == "image/jpeg" || ext == ".png" || ext == ".jpg" || ext == ".jpeg":
		return extractImage(name, raw)
	default:
		return extractPlain(name, raw)
	}
}

// BuildFileBlock extracts every file and joins the results.
func BuildFileBlock(files []NamedFile) string {
	var parts []string
	for _, f := range files {
		parts = append(parts, ExtractText(f.Name, f.Data, f.ContentType))
	}
	return strings.Join(parts, "\n\n")
}

// NamedFile is one uploaded attachment.
type NamedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func extractPDF(name string, raw []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return placeholder(name, "PDF: text extraction failed")
	}

	var parts []string
	total := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
			total += utf8.RuneCountInString(text)
		}
		if total > maxPDFChars {
			break
		}
	}

	joined := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if joined == "" {
		return placeholder(name, "PDF: no extractable text")
	}
	return fenced(name, limitText(joined, maxFileChars))
}

func extractImage(name string, raw []byte) string {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return placeholder(name, "image: OCR unavailable")
	}

	// tesseract reads stdin with "-" and writes the recognized text to stdout.
	cmd := exec.Command(path, "-", "-")
	cmd.Stdin = bytes.NewReader(raw)
	out, err := cmd.Output()
	if err != nil {
		log.Debugf("[Extractor] OCR failed for %s: %v", name, err)
		return placeholder(name, "image: OCR failed")
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return placeholder(name, "image: no text detected")
	}
	return fenced(name, limitText(text, maxFileChars))
}

func extractPlain(name string, raw []byte) string {
	// Invalid byte sequences become replacement runes so partially
	// readable files still surface their text.
	text := strings.ToValidUTF8(string(raw), "�")
	if !hasReadableText(text) {
		return placeholder(name, "binary file: no text content")
	}
	return fenced(name, limitText(text, maxPlainChars))
}

func hasReadableText(s string) bool {
	for _, r := range s {
		if r != '�' && unicode.IsGraphic(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

func limitText(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars]) + "\n...\n[content truncated]"
}

func fenced(name, text string) string {
	return fmt.Sprintf("--- FILE: %s ---\n```text\n%s\n```", name, text)
}

func placeholder(name, reason string) string {
	return fmt.Sprintf("--- FILE: %s ---\n[%s]", name, reason)
}
