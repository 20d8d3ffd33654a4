package document

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# Go Concurrency

Go makes **concurrent** programs *simple*.

## Goroutines
- Cheap to start
- Scheduled by the ` + "`runtime`" + `

### Channels
Use channels for snake_case_values & <typed> messages.
`

func TestParse(t *testing.T) {
	blocks := Parse(sample)
	want := []Block{
		{Heading1, "Go Concurrency"},
		{Paragraph, "Go makes concurrent programs simple."},
		{Heading2, "Goroutines"},
		{Bullet, "Cheap to start"},
		{Bullet, "Scheduled by the runtime"},
		{Heading3, "Channels"},
		{Paragraph, "Use channels for snake_case_values & <typed> messages."},
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks: %+v", len(blocks), blocks)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Errorf("block %d = %+v, want %+v", i, blocks[i], want[i])
		}
	}
	if Title(blocks, "x") != "Go Concurrency" {
		t.Fatalf("title = %q", Title(blocks, "x"))
	}
}

func TestWriteTXTDefaultsPath(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.Write(sample, TXT, "", "Go Concurrency!")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "go_concurrency.txt" {
		t.Fatalf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "GO CONCURRENCY") || strings.Contains(string(data), "**") {
		t.Fatalf("content = %q", data)
	}

	again, err := w.Write(sample, TXT, "", "Go Concurrency!")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if again == path || filepath.Base(again) != "go_concurrency-1.txt" {
		t.Fatalf("existing file must not be overwritten: %s", again)
	}
}

func TestWriteDOCX(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.Write(sample, DOCX, "notes", "ignored")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Ext(path) != ".docx" {
		t.Fatalf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	var doc string
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, _ := f.Open()
			b, _ := io.ReadAll(rc)
			rc.Close()
			doc = string(b)
		}
	}
	for _, n := range []string{"[Content_Types].xml", "_rels/.rels", "word/styles.xml"} {
		if !names[n] {
			t.Fatalf("missing part %s", n)
		}
	}
	if !strings.Contains(doc, `w:val="Heading1"`) || !strings.Contains(doc, "&lt;typed&gt;") {
		t.Fatalf("document.xml = %s", doc)
	}
}

func TestWritePDF(t *testing.T) {
	w := NewWriter(t.TempDir())
	path, err := w.Write(sample, PDF, "", "Go “smart” quotes")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
}

func TestWriteRejectsEmpty(t *testing.T) {
	w := NewWriter(t.TempDir())
	if _, err := w.Write("\n  \n**", TXT, "", "x"); err == nil {
		t.Fatalf("expected empty content error")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(".PDF"); err != nil || f != PDF {
		t.Fatalf("got %v %v", f, err)
	}
	if _, err := ParseFormat("pptx"); err == nil {
		t.Fatalf("expected error")
	}
}
