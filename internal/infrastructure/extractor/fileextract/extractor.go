package fileextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeRTF  = "application/rtf"
)

// Extractor turns stored uploads into plain text with a self-reported quality
// score. Corrupt or unreadable payloads return ErrExtractionFailed; the
// pipeline treats that as score 0 and continues.
type Extractor struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (ports.Extraction, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return ports.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "open payload", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return ports.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "read payload", err)
	}

	text, err := FromBytes(raw, doc.MimeType)
	if err != nil {
		return ports.Extraction{}, domain.WrapError(domain.ErrExtractionFailed, "extract text", err)
	}

	text = strings.TrimSpace(text)
	return ports.Extraction{Text: text, Score: QualityScore(text)}, nil
}

// FromBytes extracts text from an in-memory payload by mime type.
func FromBytes(data []byte, mimeType string) (string, error) {
	switch mimeType {
	case mimePDF:
		return extractPDF(data)
	case mimeDOCX:
		return extractDOCX(data)
	case mimeXLSX:
		return extractXLSX(data)
	case mimeRTF:
		return extractRTF(data)
	default:
		return extractPlain(data)
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
