// internal/handlers/card/card_handler.go
package card

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/response"
	cardUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/card"
	photoUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CardHandler serves the public, unauthenticated card surface.
type CardHandler struct {
	cardService  *cardUsecase.CardService
	photoService *photoUsecase.PhotoService
	logger       *zap.Logger
}

func NewCardHandler(cardService *cardUsecase.CardService, photoService *photoUsecase.PhotoService, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		cardService:  cardService,
		photoService: photoService,
		logger:       logger,
	}
}

func (h *CardHandler) GetCard(c *gin.Context) {
	view, err := h.cardService.View(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.fail(c, "card not found", err)
		return
	}
	response.Success(c, http.StatusOK, "card retrieved", view)
}

func (h *CardHandler) GetQR(c *gin.Context) {
	artifact, err := h.cardService.QR(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.fail(c, "card not found", err)
		return
	}
	h.serveArtifact(c, artifact, false)
}

func (h *CardHandler) GetVCard(c *gin.Context) {
	artifact, err := h.cardService.VCard(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.fail(c, "card not found", err)
		return
	}
	h.serveArtifact(c, artifact, true)
}

// GetPhoto streams a stored photo verbatim
func (h *CardHandler) GetPhoto(c *gin.Context) {
	body, obj, err := h.photoService.Resolve(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.fail(c, "photo not found", err)
		return
	}
	defer body.Close()

	headers := map[string]string{
		"Cache-Control": "public, max-age=86400",
	}
	if !obj.ModTime.IsZero() {
		headers["Last-Modified"] = obj.ModTime.UTC().Format(http.TimeFormat)
	}
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, body, headers)
}

// serveArtifact answers conditional requests from the artifact ETag, since
// artifacts are regenerated on every request.
func (h *CardHandler) serveArtifact(c *gin.Context, a *cardUsecase.Artifact, attachment bool) {
	c.Header("ETag", a.ETag)
	c.Header("Cache-Control", "no-cache")
	if !a.ModTime.IsZero() {
		c.Header("Last-Modified", a.ModTime.UTC().Format(http.TimeFormat))
	}

	if etagMatches(c.GetHeader("If-None-Match"), a.ETag) {
		c.Status(http.StatusNotModified)
		return
	}

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.Filename))
	c.Data(http.StatusOK, a.ContentType, a.Body)
}

func (h *CardHandler) fail(c *gin.Context, message string, err error) {
	if response.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	response.FromError(c, message, err)
}

// Health is the liveness probe
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
