package fileextract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestExtractPlainRejectsBinary(t *testing.T) {
	if _, err := extractPlain([]byte{0xff, 0xfe, 0x00, 0x01}); err == nil {
		t.Fatal("expected error for invalid utf-8")
	}
	text, err := extractPlain([]byte("hello world"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func docxPayload(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDOCXKeepsParagraphBoundaries(t *testing.T) {
	payload := docxPayload(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := extractDOCX(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "First paragraph.\n") {
		t.Fatalf("expected paragraph break, got %q", text)
	}
	if !strings.Contains(text, "Second paragraph.") {
		t.Fatalf("expected joined runs, got %q", text)
	}
}

func TestExtractDOCXRejectsGarbage(t *testing.T) {
	if _, err := extractDOCX([]byte("not a zip")); err == nil {
		t.Fatal("expected error for non-zip payload")
	}
	if _, err := extractDOCX(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestExtractRTFStripsControlWords(t *testing.T) {
	rtf := []byte(`{\rtf1\ansi{\fonttbl{\f0 Arial;}}\f0 Session notes.\par Client arrived on time.\tab Done.}`)

	text, err := extractRTF(rtf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Session notes.\nClient arrived on time.\tDone.") {
		t.Fatalf("unexpected rtf text: %q", text)
	}
	if strings.Contains(text, "rtf1") || strings.Contains(text, "fonttbl") {
		t.Fatalf("expected control words stripped, got %q", text)
	}
}

func TestExtractRTFRejectsNonRTF(t *testing.T) {
	if _, err := extractRTF([]byte("plain text")); err == nil {
		t.Fatal("expected error for non-rtf payload")
	}
}

func TestFromBytesDispatchesByMimeType(t *testing.T) {
	text, err := FromBytes([]byte("plain content"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "plain content" {
		t.Fatalf("unexpected text: %q", text)
	}

	if _, err := FromBytes([]byte("junk"), mimeDOCX); err == nil {
		t.Fatal("expected docx error for junk payload")
	}
}
