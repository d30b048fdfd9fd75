package projects

import (
	"errors"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-digital/atelier-backend/internal/api/http"
	"github.com/atelier-digital/atelier-backend/internal/apperr"
	"github.com/atelier-digital/atelier-backend/internal/logging"
	"github.com/atelier-digital/atelier-backend/internal/staging"
	"github.com/atelier-digital/atelier-backend/internal/storage"
)

type Handler struct {
	service      *Service
	blobs        storage.BlobStore
	maxFileBytes int64
	maxImages    int
}

func NewHandler(service *Service, blobs storage.BlobStore, maxFileBytes int64, maxImages int) *Handler {
	if maxImages <= 0 || maxImages > MaxImagesPerProject {
		maxImages = MaxImagesPerProject
	}
	return &Handler{service: service, blobs: blobs, maxFileBytes: maxFileBytes, maxImages: maxImages}
}

// Register mounts the public read-only routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/:slug", h.getBySlug)
}

// RegisterAdmin mounts the mutation routes; the caller wires the auth
// gates onto the group.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.PUT("/:id", h.update)
	rg.DELETE("/:id", h.delete)
	rg.POST("/:id/featured", h.toggleFeatured)
	rg.POST("/:id/images", h.uploadImages)
}

func (h *Handler) list(c *gin.Context) {
	f := Filter{
		Category:     c.Query("category"),
		FeaturedOnly: c.Query("featured") == "true",
	}

	items, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, items)
}

func (h *Handler) getBySlug(c *gin.Context) {
	p, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, p)
}

func (h *Handler) create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		http.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusCreated, p)
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		http.Fail(c, apperr.Validation("invalid request body"))
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) toggleFeatured(c *gin.Context) {
	p, err := h.service.ToggleFeatured(c.Request.Context(), c.Param("id"))
	if err != nil {
		http.Fail(c, err)
		return
	}
	http.OK(c, nethttp.StatusOK, p)
}

// uploadImages accepts multipart form data: "images" file parts for
// new uploads and repeated "existing" values for the kept pre-existing
// URLs, in display order.
func (h *Handler) uploadImages(c *gin.Context) {
	ctx := c.Request.Context()
	logger := logging.NewLogger(ctx)

	form, err := c.MultipartForm()
	if err != nil {
		http.Fail(c, apperr.Validation("invalid multipart form"))
		return
	}

	pipe := staging.NewPipeline(h.blobs, h.maxImages, h.maxFileBytes, nil)
	defer pipe.Close()

	pipe.AddExisting(form.Value["existing"]...)

	files := make([]staging.File, 0, len(form.File["images"]))
	for _, fh := range form.File["images"] {
		files = append(files, staging.FromMultipart(fh))
	}
	added := pipe.Add(files...)
	if len(added.Errors) > 0 {
		http.Fail(c, apperr.Validation(added.ErrorsMessage()))
		return
	}

	result, err := pipe.Submit(ctx)
	if err != nil {
		// drop the blobs that did land so nothing is orphaned
		if len(result.UploadedKeys) > 0 {
			if rmErr := h.blobs.Remove(ctx, result.UploadedKeys); rmErr != nil {
				logger.LogWarnf("upload_images", "orphan cleanup failed: %v", rmErr)
			}
		}
		var se *staging.SubmitError
		if errors.As(err, &se) {
			http.Fail(c, apperr.Validation(se.Error()))
			return
		}
		http.Fail(c, apperr.Internal("upload_images", err))
		return
	}

	p, err := h.service.ReplaceImages(ctx, c.Param("id"), result.URLs, result.RemovedExisting)
	if err != nil {
		http.Fail(c, err)
		return
	}

	data := gin.H{"project": p}
	if msg := added.DroppedMessage(h.maxImages - pipe.Len()); msg != "" {
		data["warning"] = msg
	}
	http.OK(c, nethttp.StatusOK, data)
}
