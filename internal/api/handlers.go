package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"paperpal/internal/ai"
	"paperpal/internal/config"
	"paperpal/internal/helper"
	"paperpal/internal/llmservice"
	"paperpal/internal/models"
	"paperpal/internal/parser"
	"paperpal/internal/prompt"
	"paperpal/internal/rag"
)

const pdfExtension = ".pdf"

// Handler wires HTTP routes to the RAG pipeline and the AI clients.
type Handler struct {
	ai  *ai.Components
	cfg *config.Config
}

// NewHandler constructs a Handler instance.
func NewHandler(components *ai.Components, cfg *config.Config) *Handler {
	return &Handler{ai: components, cfg: cfg}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.health)
	router.POST("/upload", h.uploadPDF)
	router.GET("/pdf/:filename", h.servePDF)
	router.GET("/papers", h.listPapers)
	router.POST("/chat", h.chat)
	router.POST("/translate", h.translate)
	router.POST("/analyze_page", h.analyzePage)
	router.POST("/transcribe", h.transcribe)
	router.POST("/synthesize", h.synthesize)
	router.POST("/clear_data", h.clearData)
}

// ensureReady re-initializes the AI components when needed; on failure the
// request is answered with 503 and false is returned.
func (h *Handler) ensureReady(c *gin.Context) bool {
	if err := h.ai.Ensure(); err != nil {
		log.Error().Err(err).Msg("AI components unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI services are currently unavailable"})
		return false
	}
	return true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "paperpal",
		"status":  "ok",
		"ready":   h.ai.Ready(),
	})
}

func (h *Handler) uploadPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing pdf_file in request"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file selected"})
		return
	}
	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != pdfExtension {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed, only PDF is accepted"})
		return
	}

	paperID, err := helper.GenerateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate paper id"})
		return
	}
	originalName := helper.SanitizeFilename(fileHeader.Filename, "paper.pdf")
	storedName := paperID + "_" + originalName
	storedPath := filepath.Join(h.cfg.Storage.UploadsDir, storedName)

	log.Info().Str("paper_id", paperID).Str("path", storedPath).Msg("Saving upload")
	if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
		log.Error().Err(err).Str("path", storedPath).Msg("Failed to save upload")
		// A partial write must not linger; nothing references it yet.
		if rmErr := os.Remove(storedPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn().Err(rmErr).Str("path", storedPath).Msg("Failed to remove partial upload")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save uploaded file"})
		return
	}

	if !h.ensureReady(c) {
		return
	}

	pipeline := rag.NewPipeline(h.ai.VectorStore(), h.cfg.RAG.ChunkSize, h.cfg.RAG.ChunkOverlap)
	result := pipeline.Ingest(c.Request.Context(), storedPath, paperID)
	if !result.OK() {
		// The file is kept; the ingestion failure is reported separately.
		log.Error().Err(result.Err).Str("paper_id", paperID).Stringer("stage", result.Stage).Msg("Ingestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"message":  "file uploaded, but processing failed",
			"error":    fmt.Sprintf("ingestion failed after stage %q", result.Stage),
			"filename": storedName,
			"paper_id": paperID,
			"filepath": "/pdf/" + storedName,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "file uploaded and processed",
		"error":    nil,
		"filename": storedName,
		"paper_id": paperID,
		"filepath": "/pdf/" + storedName,
	})
}

func (h *Handler) servePDF(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	path := filepath.Join(h.cfg.Storage.UploadsDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.File(path)
}

func (h *Handler) listPapers(c *gin.Context) {
	if err := h.ai.Ensure(); err != nil {
		log.Error().Err(err).Msg("Cannot list papers: vector store unavailable")
		c.JSON(http.StatusServiceUnavailable, []models.Paper{})
		return
	}

	ids, err := h.ai.VectorStore().PaperIDs(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list paper ids")
		c.JSON(http.StatusOK, []models.Paper{})
		return
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	// Cross-reference stored ids with filenames on disk for display names.
	displayNames := make(map[string]string)
	entries, err := os.ReadDir(h.cfg.Storage.UploadsDir)
	if err != nil {
		log.Warn().Err(err).Str("dir", h.cfg.Storage.UploadsDir).Msg("Failed to scan uploads directory")
	} else {
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), pdfExtension) {
				continue
			}
			idPart, rest, found := strings.Cut(name, "_")
			if !found || !helper.IsValidUUID(idPart) {
				continue
			}
			if known[idPart] && displayNames[idPart] == "" {
				displayNames[idPart] = rest
			}
		}
	}

	papers := make([]models.Paper, 0, len(ids))
	for _, id := range ids {
		displayName := displayNames[id]
		if displayName == "" {
			displayName = "Paper_" + id[:8]
		}
		papers = append(papers, models.Paper{PaperID: id, DisplayName: displayName})
	}
	sort.Slice(papers, func(i, j int) bool { return papers[i].DisplayName < papers[j].DisplayName })

	c.JSON(http.StatusOK, papers)
}

type chatRequest struct {
	Message        string `json:"message"`
	PaperID        string `json:"paper_id"`
	CurrentPageNum *int   `json:"currentPageNum"`
	ContextMode    string `json:"context_mode"`
}

func (h *Handler) chat(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx := c.Request.Context()

	// General chat when no paper is selected.
	if req.PaperID == "" {
		reply, err := llmservice.Generate(ctx, h.ai.LLM, req.Message)
		if err != nil {
			log.Error().Err(err).Msg("Chat completion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "the AI request failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
		return
	}

	if !helper.IsValidUUID(req.PaperID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid paper_id"})
		return
	}

	mode := prompt.ParseMode(req.ContextMode)
	log.Info().Str("paper_id", req.PaperID).Str("mode", string(mode)).Msg("Chat request")

	pdfPath := h.findPaperFile(req.PaperID)
	if pdfPath == "" {
		c.JSON(http.StatusOK, gin.H{
			"reply": fmt.Sprintf("Error: no document was found for paper ID %q.", req.PaperID),
		})
		return
	}

	in := prompt.Input{
		Question: req.Message,
		PaperID:  req.PaperID,
		Language: h.cfg.OpenAI.ReplyLanguage,
	}

	if mode == prompt.ModePage && req.CurrentPageNum != nil && *req.CurrentPageNum >= 1 {
		in.PageNumber = *req.CurrentPageNum
		pageText, err := parser.ExtractPage(pdfPath, in.PageNumber)
		if err != nil {
			log.Warn().Err(err).Int("page", in.PageNumber).Msg("Failed to extract page text")
		} else {
			in.PageText = pageText
			in.PageTextOK = true
		}
	}

	retriever := rag.NewRetriever(h.ai.VectorStore(), h.cfg.RAG.TopK)
	fragments, err := retriever.Retrieve(ctx, req.PaperID, req.Message, 0)
	if err != nil {
		// Degrade to an explicit "no fragments" section rather than failing.
		log.Error().Err(err).Str("paper_id", req.PaperID).Msg("Fragment retrieval failed")
	} else {
		in.Fragments = fragments
	}

	reply, err := llmservice.Generate(ctx, h.ai.LLM, prompt.Compose(in, mode))
	if err != nil {
		log.Error().Err(err).Msg("Chat completion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the AI request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type translateRequest struct {
	Text string `json:"text"`
}

func (h *Handler) translate(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text provided for translation"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "translation text must not be empty"})
		return
	}

	reply, err := llmservice.Generate(c.Request.Context(), h.ai.LLM, prompt.Translation(req.Text, h.cfg.OpenAI.ReplyLanguage))
	if err != nil {
		log.Error().Err(err).Msg("Translation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the translation request failed"})
		return
	}
	translation := strings.Trim(strings.TrimSpace(reply), `"'`)
	c.JSON(http.StatusOK, gin.H{"translation": translation})
}

type analyzePageRequest struct {
	ImageData string `json:"image_data"`
	PageNum   any    `json:"page_num"`
}

func (h *Handler) analyzePage(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	var req analyzePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !strings.HasPrefix(req.ImageData, "data:image") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data format"})
		return
	}

	pageLabel := "unknown"
	if req.PageNum != nil {
		pageLabel = formatPageNum(req.PageNum)
	}
	log.Info().Str("page", pageLabel).Int("image_len", len(req.ImageData)).Msg("Analyzing page image")

	analysis, err := llmservice.AnalyzeImage(c.Request.Context(), h.ai.Vision,
		prompt.PageAnalysis(pageLabel, h.cfg.OpenAI.ReplyLanguage), req.ImageData)
	if err != nil {
		log.Error().Err(err).Msg("Page analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the page analysis request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func (h *Handler) transcribe(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	fileHeader, err := c.FormFile("audio_blob")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file in request"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no audio file selected"})
		return
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate temp file name"})
		return
	}
	safeName := helper.SanitizeFilename(fileHeader.Filename, "upload.tmp")
	tempPath := filepath.Join(h.cfg.Storage.TempAudioDir, id+"_"+safeName)

	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		log.Error().Err(err).Str("path", tempPath).Msg("Failed to save temp audio")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store audio file"})
		return
	}
	// The temp file lives only for the duration of this call.
	defer func() {
		if err := os.Remove(tempPath); err != nil {
			log.Error().Err(err).Str("path", tempPath).Msg("Failed to remove temp audio")
		}
	}()

	text, err := h.ai.Speech.Transcribe(c.Request.Context(), tempPath)
	if err != nil {
		log.Error().Err(err).Msg("Transcription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the transcription request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

func (h *Handler) synthesize(c *gin.Context) {
	if !h.ensureReady(c) {
		return
	}
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text provided for synthesis"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "synthesis text must not be empty"})
		return
	}

	audio, contentType, err := h.ai.Speech.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("Speech synthesis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the speech synthesis request failed"})
		return
	}
	defer audio.Close()

	// Forward audio bytes as they arrive instead of buffering the stream.
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				log.Warn().Err(werr).Msg("Client stopped reading audio stream")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Audio stream interrupted")
			return
		}
	}
}

func (h *Handler) clearData(c *gin.Context) {
	log.Warn().Msg("Received request to clear all data")
	var details []string

	if store := h.ai.VectorStore(); store != nil {
		if err := store.Reset(c.Request.Context()); err != nil {
			log.Error().Err(err).Msg("Failed to reset vector store")
			details = append(details, fmt.Sprintf("vector store reset failed: %v", err))
		}
	} else {
		details = append(details, "vector store is not initialized")
	}

	for _, dir := range []string{h.cfg.Storage.UploadsDir, h.cfg.Storage.TempAudioDir} {
		removed, err := helper.ClearFolder(dir)
		if err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to clear directory")
			details = append(details, fmt.Sprintf("clearing %s failed: %v", dir, err))
			continue
		}
		log.Info().Str("dir", dir).Int("removed", removed).Msg("Cleared directory")
	}

	if len(details) > 0 {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "some data could not be cleared",
			"details": details,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all data cleared"})
}

// findPaperFile locates the stored PDF for a paper id; "" when absent.
func (h *Handler) findPaperFile(paperID string) string {
	entries, err := os.ReadDir(h.cfg.Storage.UploadsDir)
	if err != nil {
		log.Error().Err(err).Str("dir", h.cfg.Storage.UploadsDir).Msg("Failed to scan uploads directory")
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), pdfExtension) {
			continue
		}
		if strings.HasPrefix(name, paperID+"_") {
			return filepath.Join(h.cfg.Storage.UploadsDir, name)
		}
	}
	return ""
}

func formatPageNum(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%d", int(n))
	case string:
		if strings.TrimSpace(n) == "" {
			return "unknown"
		}
		return n
	default:
		return fmt.Sprint(v)
	}
}
