package fileextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("payload is not valid utf-8 text")
	}
	return string(data), nil
}

// extractDOCX pulls the document body out of the OOXML package and keeps
// paragraph boundaries as newlines.
func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx payload")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx package: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("docx package has no word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// extractXLSX flattens every sheet row into tab-separated lines. Dictation
// services commonly export transcripts as one utterance per row.
func extractXLSX(data []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx workbook: %w", err)
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// extractRTF strips control words and groups; good enough for the dictation
// exports we see, which are plain paragraphs with minimal formatting.
func extractRTF(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte(`{\rtf`)) {
		return "", errors.New("payload is not rtf")
	}

	var sb strings.Builder
	i := 0
	for i < len(data) {
		c := data[i]
		switch c {
		case '{', '}':
			i++
		case '\\':
			i++
			start := i
			for i < len(data) && (isAlpha(data[i]) || data[i] == '-' || (i > start && isDigit(data[i]))) {
				i++
			}
			word := string(data[start:i])
			if i < len(data) && data[i] == ' ' {
				i++
			}
			switch word {
			case "par", "line":
				sb.WriteByte('\n')
			case "tab":
				sb.WriteByte('\t')
			}
		case '\r', '\n':
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
