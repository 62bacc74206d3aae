package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/security"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/upload"
)

// AnalysisData is the result shape the web UI renders
type AnalysisData struct {
	Filename   string   `json:"filename"`
	SizeMB     *float64 `json:"size_mb,omitempty"`
	Confidence float64  `json:"confidence"`
	IsAI       bool     `json:"is_ai"`
	Factors    []string `json:"factors"`
}

// SuccessResponse wraps a successful analysis
type SuccessResponse struct {
	Status string       `json:"status"`
	Data   AnalysisData `json:"data"`
}

func newSuccessResponse(result analysis.ScoreResult) SuccessResponse {
	factors := result.Factors
	if factors == nil {
		factors = []string{}
	}
	return SuccessResponse{
		Status: "success",
		Data: AnalysisData{
			Filename:   result.SubjectName,
			SizeMB:     result.SizeMB,
			Confidence: result.Confidence,
			IsAI:       result.Verdict,
			Factors:    factors,
		},
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	appErr := apperrors.ToAppError(err)
	appErr.RequestID = c.GetHeader("X-Request-ID")
	apperrors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "AI Video Detector"})
}

// handleAnalyzeUpload streams the multipart "video" field to the upload store and scores it.
// Only the file's name, size and timestamps are inspected.
func (s *Server) handleAnalyzeUpload(c *gin.Context) {
	start := time.Now()

	reader, err := c.Request.MultipartReader()
	if err != nil {
		s.respondError(c, apperrors.NewInvalidInputError("No video file provided"))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			s.respondError(c, apperrors.NewInvalidInputError("No video file provided"))
			return
		}
		if err != nil {
			if security.IsBodyTooLarge(err) {
				s.respondError(c, apperrors.NewPayloadTooLargeError(s.store.MaxBytes()))
				return
			}
			s.respondError(c, apperrors.NewInvalidInputError("Malformed multipart body", err.Error()))
			return
		}

		if part.FormName() != "video" {
			_ = part.Close()
			continue
		}

		filename := part.FileName()
		path, size, err := s.store.Save(part, filename)
		_ = part.Close()
		if err != nil {
			s.respondError(c, err)
			return
		}
		if !s.cfg.Upload.Keep {
			defer s.store.Remove(path)
		}
		s.metrics.RecordUpload(size)

		info, err := adapters.StatVideo(path)
		if err != nil {
			s.respondError(c, apperrors.NewInternalError(filename, "stat_upload", err))
			return
		}
		// score the client's name, not the collision-free storage name
		info.Name = upload.SanitizeFilename(filename)

		result := s.analyzer.AnalyzeFile(info)
		s.recordAnalysis("file", result, time.Since(start))

		c.JSON(http.StatusOK, newSuccessResponse(result))
		return
	}
}

func (s *Server) handleAnalyzeURL(c *gin.Context) {
	start := time.Now()

	var req types.AnalyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if security.IsBodyTooLarge(err) {
			s.respondError(c, apperrors.NewPayloadTooLargeError(maxURLBody))
			return
		}
		s.respondError(c, apperrors.NewInvalidInputError("No URL provided"))
		return
	}

	videoURL, err := adapters.ValidateURL(req.URL)
	if err != nil {
		s.respondError(c, err)
		return
	}

	meta, err := s.fetcher.Fetch(c.Request.Context(), videoURL)
	if err != nil {
		if !apperrors.IsSubjectUnavailable(err) {
			err = apperrors.NewFetchError(videoURL, err)
		}
		s.respondError(c, err)
		return
	}
	if meta.URL == "" {
		meta.URL = videoURL
	}

	result := s.analyzer.AnalyzeMetadata(meta)
	s.recordAnalysis("url", result, time.Since(start))

	c.JSON(http.StatusOK, newSuccessResponse(result))
}

func (s *Server) recordAnalysis(source string, result analysis.ScoreResult, duration time.Duration) {
	s.metrics.RecordAnalysis(source, result.Confidence, result.Verdict)
	s.logger.AnalysisLogger(result.SubjectName, source, result.Confidence, result.Verdict, len(result.Factors), duration)
}
