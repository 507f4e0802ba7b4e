package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"UD_referral_bot/internal/middleware"
	"UD_referral_bot/internal/service"
	"UD_referral_bot/pkg/auth"
	"UD_referral_bot/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

// dateLayout is how publish dates travel over the API.
const dateLayout = "02.01.2006"

type MediaStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Delete(path string) error
}

type contentPlanRoutes struct {
	cps   service.ContentPlanServiceI
	media MediaStore
}

func NewContentPlanRoutes(
	handler *gin.RouterGroup,
	cps service.ContentPlanServiceI,
	media MediaStore,
	a *auth.TelegramAuth,
	authz *middleware.Authorization,
) {
	r := &contentPlanRoutes{cps: cps, media: media}
	h := handler.Group("/content-plan/:telegram_id")
	h.Use(a.TelegramAuthMiddleware(), authz.OwnerOnly())
	{
		h.GET("", r.ListContentPlan)
		h.POST("", r.ScheduleEntry)
		h.DELETE("/:date", r.CancelEntry)
	}
}

type ScheduleEntryRequest struct {
	Message     string                `form:"message" binding:"required"`
	PublishDate string                `form:"publish_date" binding:"required"`
	Media       *multipart.FileHeader `form:"media"`
}

type contentPlanEntry struct {
	Message     string `json:"message"`
	MediaPath   string `json:"media_path,omitempty"`
	MediaKind   string `json:"media_kind"`
	PublishDate string `json:"publish_date"`
}

var scheduleStatusCodes = map[service.ScheduleStatus]int{
	service.ScheduleCreated:          http.StatusCreated,
	service.ScheduleInvalidDate:      http.StatusBadRequest,
	service.ScheduleOwnerNotFound:    http.StatusNotFound,
	service.ScheduleDuplicateForDate: http.StatusConflict,
	service.ScheduleUnknownError:     http.StatusInternalServerError,
}

var cancelStatusCodes = map[service.CancelStatus]int{
	service.CancelDeleted:      http.StatusOK,
	service.CancelInvalidDate:  http.StatusBadRequest,
	service.CancelNotFound:     http.StatusNotFound,
	service.CancelUnknownError: http.StatusInternalServerError,
}

func (r *contentPlanRoutes) ListContentPlan(c *gin.Context) {
	log := logger.Logger()

	entries, err := r.cps.ListForOwner(c.Request.Context(), c.Param("telegram_id"))
	if err != nil {
		log.Error("failed to list content plan", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get content plan"})
		return
	}

	out := make([]contentPlanEntry, len(entries))
	for i, e := range entries {
		out[i] = contentPlanEntry{
			Message:     e.Message,
			MediaKind:   service.ClassifyMedia(e.MediaPath).String(),
			PublishDate: e.PublishDate.Format(dateLayout),
		}
		if e.MediaPath != nil {
			out[i].MediaPath = *e.MediaPath
		}
	}

	c.JSON(http.StatusOK, out)
}

// ScheduleEntry accepts a multipart form with the message, the publish date and an
// optional media file. The file is removed again when the entry is not created.
func (r *contentPlanRoutes) ScheduleEntry(c *gin.Context) {
	log := logger.Logger()
	ownerID := c.Param("telegram_id")

	var req ScheduleEntryRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	publishDate, err := time.Parse(dateLayout, req.PublishDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publish_date must look like " + dateLayout})
		return
	}

	var mediaPath *string
	if req.Media != nil {
		path, err := r.saveMedia(req.Media)
		if err != nil {
			log.Error("failed to save media", zap.String("owner_id", ownerID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save media"})
			return
		}
		mediaPath = &path
	}

	status := r.cps.Schedule(c.Request.Context(), ownerID, req.Message, publishDate, mediaPath)
	if status != service.ScheduleCreated && mediaPath != nil {
		if err := r.media.Delete(*mediaPath); err != nil {
			log.Error("failed to remove media of rejected entry", zap.String("path", *mediaPath), zap.Error(err))
		}
	}

	c.JSON(scheduleStatusCodes[status], gin.H{
		"status":       status.String(),
		"publish_date": publishDate.Format(dateLayout),
		"media_kind":   service.ClassifyMedia(mediaPath).String(),
	})
}

func (r *contentPlanRoutes) saveMedia(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return r.media.Save(fh.Filename, f)
}

func (r *contentPlanRoutes) CancelEntry(c *gin.Context) {
	publishDate, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must look like " + dateLayout})
		return
	}

	status := r.cps.Cancel(c.Request.Context(), c.Param("telegram_id"), publishDate)
	c.JSON(cancelStatusCodes[status], gin.H{"status": status.String()})
}
