package service

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tieubaoca/rfi-processor-be/logger"
	"github.com/tieubaoca/rfi-processor-be/types"
	"go.uber.org/zap"
)

// ChunkerService splits extracted document text into token-bounded windows
// and extracts text from uploaded PDF files.
type ChunkerService struct {
	maxChunkTokens int // Maximum number of tokens per chunk
	overlapTokens  int // Tokens shared between consecutive chunks
}

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	MaxChunkTokens: 1000,
	OverlapTokens:  0,
}

// NewChunkerService creates a new chunker with configurable window sizes.
// The overlap must be smaller than the window; an invalid overlap falls
// back to 0.
func NewChunkerService(config types.DocumentServiceConfig) *ChunkerService {
	if config.MaxChunkTokens <= 0 {
		config.MaxChunkTokens = DefaultDocumentServiceConfig.MaxChunkTokens
	}
	if config.OverlapTokens < 0 || config.OverlapTokens >= config.MaxChunkTokens {
		config.OverlapTokens = 0
	}
	return &ChunkerService{
		maxChunkTokens: config.MaxChunkTokens,
		overlapTokens:  config.OverlapTokens,
	}
}

// ChunkText splits text into an ordered sequence of chunks of at most
// maxChunkTokens tokens each, consecutive chunks sharing overlapTokens
// tokens. For L tokens the result holds ceil(L/(max-overlap)) chunks,
// none empty. Empty input fails before any external call is made.
func (s *ChunkerService) ChunkText(text string, metadata types.DocumentMetadata) ([]types.DocumentChunk, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyDocument, metadata.Source)
	}

	step := s.maxChunkTokens - s.overlapTokens
	var chunks []types.DocumentChunk
	for start := 0; start < len(tokens); start += step {
		end := start + s.maxChunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, types.DocumentChunk{
			Index:    len(chunks),
			Content:  strings.Join(tokens[start:end], " "),
			Metadata: metadata,
		})
	}
	return chunks, nil
}

// ExtractDocumentText pulls the full text out of a PDF file, page by page,
// falling back to OCR for pages pdftotext cannot read. Returns the cleaned
// text and the page count.
func (s *ChunkerService) ExtractDocumentText(filePath string) (string, int, error) {
	totalPages, err := getNumPages(filePath)
	if err != nil {
		return "", 0, err
	}
	logger.Debug("extracting document text",
		zap.String("file", filePath), zap.Int("pages", totalPages))

	var pages []string
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		text, err := s.extractText(filePath, pageNum)
		if err != nil {
			logger.Warn("failed to extract text from page",
				zap.Int("page", pageNum), zap.Error(err))
			continue // Skip failed pages instead of returning error
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), totalPages, nil
}

// GetFileNameWithoutExt extracts the filename without extension from a path.
func GetFileNameWithoutExt(path string) string {
	base := path[strings.LastIndex(path, "/")+1:]
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base
}

// extractText attempts to extract text from a specific page using multiple methods
func (s *ChunkerService) extractText(filePath string, pageNumber int) (string, error) {
	text, err := extractTextWithPdftotext(filePath, pageNumber)
	if err != nil || text == "" {
		text, err = extractTextWithTesseract(filePath, pageNumber)
		if err != nil {
			return "", fmt.Errorf("failed to extract text: %w", err)
		}
	}
	return text, nil
}

// extractTextWithPdftotext extracts text using the pdftotext utility.
func extractTextWithPdftotext(path string, pageNumber int) (string, error) {
	pdftotextCmd := exec.Command("pdftotext", "-f", strconv.Itoa(pageNumber),
		"-l", strconv.Itoa(pageNumber),
		"-enc", "UTF-8", "-nopgbrk",
		path, "-")
	var txtOut bytes.Buffer
	pdftotextCmd.Stdout = &txtOut

	if err := pdftotextCmd.Run(); err != nil {
		logger.Debug("pdftotext failed", zap.Int("page", pageNumber), zap.Error(err))
	}
	pageText := txtOut.String()
	if trimmed := strings.TrimSpace(pageText); len(trimmed) > 0 {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNumber)
}

// extractTextWithTesseract extracts text using OCR when pdftotext fails.
func extractTextWithTesseract(pdfPath string, pageNumber int) (string, error) {
	logger.Debug("falling back to tesseract", zap.Int("page", pageNumber))
	if _, err := os.Stat("temp"); os.IsNotExist(err) {
		os.Mkdir("temp", os.ModePerm)
	}
	tempFolder := filepath.Join("temp", GetFileNameWithoutExt(pdfPath))
	if _, err := os.Stat(tempFolder); err == nil {
		os.RemoveAll(tempFolder)
	}
	if err := os.Mkdir(tempFolder, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempFolder)

	convertCmd := exec.Command("pdftoppm", "-f", strconv.Itoa(pageNumber), "-l", strconv.Itoa(pageNumber), "-png", pdfPath, filepath.Join(tempFolder, "page"))
	if err := convertCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to convert page %d to image: %w", pageNumber, err)
	}
	pattern := filepath.Join(tempFolder, "page-*.png")
	file, err := filepath.Glob(pattern)
	if err != nil || len(file) == 0 {
		return "", fmt.Errorf("failed to read image files: %w", err)
	}
	imageFile := file[0]
	ocrCmd := exec.Command("tesseract",
		imageFile,
		"stdout",
		"-l", "eng",
		"--oem", "3", // Use LSTM OCR Engine Mode
		"--psm", "3", // Auto-detect page segmentation mode
	)
	var ocrOut bytes.Buffer
	ocrCmd.Stdout = &ocrOut
	if err := ocrCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to run tesseract: %w", err)
	}
	ocrText := ocrOut.String()
	if trimmed := strings.TrimSpace(ocrText); len(trimmed) > 0 {
		return trimmed, nil
	}
	return "", fmt.Errorf("got nothing at page %d", pageNumber)
}

// getNumPages uses pdfinfo to get the total number of pages in a PDF file.
func getNumPages(pdfPath string) (int, error) {
	cmd := exec.Command("pdfinfo", pdfPath)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("error running pdfinfo: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	re := regexp.MustCompile(`Pages:\s+(\d+)`)
	for scanner.Scan() {
		line := scanner.Text()
		if matches := re.FindStringSubmatch(line); len(matches) == 2 {
			return strconv.Atoi(matches[1])
		}
	}

	return 0, fmt.Errorf("unable to determine page count from pdfinfo")
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // Null character
		"\ufffd": "",   // Unicode replacement character
		"\u001b": "",   // Escape character
		"\r":     "",   // Carriage return
		"\f":     "\n", // Form feed to newline
	}
	cleaned := text
	for old, new := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, new)
	}
	return strings.TrimSpace(cleaned)
}
