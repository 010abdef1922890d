package latex

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractIntroConclusionFindsBothSections(t *testing.T) {
	content := `\section{Introduction}
This is the introduction content with some text that is long enough.
` + strings.Repeat("filler words to pad length. ", 20) + `
\section{Method}
Some method content here that should not appear in the extraction.
\section{Conclusion}
This is the conclusion, also padded with enough characters to be useful.
` + strings.Repeat("more filler. ", 20)

	got := ExtractIntroConclusion(content)
	if !strings.Contains(got, "Introduction") {
		t.Fatal("expected extraction to contain Introduction section")
	}
	if !strings.Contains(got, "Conclusion") {
		t.Fatal("expected extraction to contain Conclusion section")
	}
	if strings.Contains(got, "method content") {
		t.Fatal("expected Method section to be excluded")
	}
}

func TestExtractIntroConclusionFallsBackWhenTooShort(t *testing.T) {
	content := "Some random content without any LaTeX sections at all."
	got := ExtractIntroConclusion(content)
	if !strings.Contains(got, "Some random content") {
		t.Fatalf("expected fallback to raw content, got %q", got)
	}
}

func TestExtractIntroConclusionTruncatesTo15000(t *testing.T) {
	intro := `\section{Introduction}` + strings.Repeat("x", 20000)
	got := ExtractIntroConclusion(intro)
	if len([]rune(got)) > maxExtractedLength {
		t.Fatalf("expected truncation to %d chars, got %d", maxExtractedLength, len([]rune(got)))
	}
}

func TestExtractIntroConclusionStopsAtBibliography(t *testing.T) {
	content := `\section{Conclusion}
Final remarks that are reasonably long and should be captured in full here.
` + strings.Repeat("padding text. ", 40) + `
\bibliography{refs}
Reference one. Reference two.`

	got := ExtractIntroConclusion(content)
	if strings.Contains(got, "Reference one") {
		t.Fatal("expected bibliography content to be excluded")
	}
}

func TestCleanLatexStripsFormattingCommands(t *testing.T) {
	content := `This is \textbf{bold} text with \cite{ref123} and \label{sec:x}.`
	got := CleanLatex(content)
	if strings.Contains(got, `\textbf`) || strings.Contains(got, `\cite`) || strings.Contains(got, `\label`) {
		t.Fatalf("expected formatting commands stripped, got %q", got)
	}
	if !strings.Contains(got, "bold") {
		t.Fatalf("expected command content preserved, got %q", got)
	}
}

func TestCleanLatexReplacesMathWithMarker(t *testing.T) {
	content := `The result is $x^2 + y^2 = z^2$ as shown.`
	got := CleanLatex(content)
	if !strings.Contains(got, "[MATH]") {
		t.Fatalf("expected inline math replaced with marker, got %q", got)
	}
}

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write tar content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTarGzWritesFilesUnderDir(t *testing.T) {
	dir := t.TempDir()
	archive := buildTarGz(t, map[string]string{"main.tex": "\\documentclass{article}"})

	if err := extractTarGz(bytes.NewReader(archive), dir); err != nil {
		t.Fatalf("extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "main.tex"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "\\documentclass{article}" {
		t.Fatalf("unexpected extracted content: %q", data)
	}
}

func TestFindMainTexFilePrefersMainTex(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"other.tex", "main.tex", "paper.tex"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, ok := FindMainTexFile(dir)
	if !ok || filepath.Base(got) != "main.tex" {
		t.Fatalf("expected main.tex to be selected, got %q", got)
	}
}

func TestFindMainTexFileFallsBackToFirstTexFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "body.tex"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := FindMainTexFile(dir)
	if !ok || filepath.Base(got) != "body.tex" {
		t.Fatalf("expected fallback to body.tex, got %q", got)
	}
}

func TestFindMainTexFileReturnsFalseWhenNoTexFiles(t *testing.T) {
	dir := t.TempDir()
	if _, ok := FindMainTexFile(dir); ok {
		t.Fatal("expected false when directory has no .tex files")
	}
}
