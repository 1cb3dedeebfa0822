package session

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"cine-prompt-server/modules/common/apperror"
	"cine-prompt-server/modules/common/model"
	"cine-prompt-server/modules/common/response"
	"cine-prompt-server/modules/common/utils"
)

const multipartMemory = 8 << 20

type Handler struct {
	controller  *Controller
	sessions    *Manager
	maxUpload   int64
	development bool
	startedAt   time.Time
}

func NewHandler(controller *Controller, sessions *Manager, maxUpload int64, development bool) *Handler {
	return &Handler{
		controller:  controller,
		sessions:    sessions,
		maxUpload:   maxUpload,
		development: development,
		startedAt:   time.Now(),
	}
}

// RegisterRoutes - session API under r
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", h.HandleCreate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", h.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.HandleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/storyboard", h.HandleStoryboard).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/regenerate", h.HandleRegenerate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/params", h.HandleParams).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}/transitions", h.HandleTransitions).Methods(http.MethodPost)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	response.JSON(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.controller.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(mux.Vars(r)["id"]) {
		h.fail(w, r, apperror.NotFound("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storyboardForm - JSON variant of the storyboard request
type storyboardForm struct {
	model.UserConfig
	ImageDataURL string `json:"imageDataUrl"`
}

// HandleStoryboard - multipart (image + fields) or JSON (imageDataUrl)
func (h *Handler) HandleStoryboard(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	var (
		cfg   model.UserConfig
		image *utils.InlineImage
		err   error
	)
	if isMultipart(r) {
		cfg, image, err = h.parseStoryboardMultipart(r)
	} else {
		cfg, image, err = h.parseStoryboardJSON(r)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	log.Ctx(r.Context()).Info().
		Str("session", id).
		Int("shots", cfg.ShotCount).
		Str("aspect", cfg.AspectRatio).
		Bool("image", image != nil).
		Msg("[Session] storyboard requested")

	snap, err := h.controller.GenerateStoryboard(r.Context(), id, cfg, image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

func (h *Handler) parseStoryboardMultipart(r *http.Request) (model.UserConfig, *utils.InlineImage, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return model.UserConfig{}, nil, uploadError(err)
	}
	shotCount, err := formInt(r, "shotCount")
	if err != nil {
		return model.UserConfig{}, nil, err
	}
	cfg := model.UserConfig{
		ShotCount:       shotCount,
		AspectRatio:     strings.TrimSpace(r.FormValue("aspectRatio")),
		MainDescription: r.FormValue("mainDescription"),
		AdditionalNotes: r.FormValue("additionalNotes"),
	}
	image, err := formImage(r, "image")
	if err != nil {
		return model.UserConfig{}, nil, err
	}
	return cfg, image, nil
}

func (h *Handler) parseStoryboardJSON(r *http.Request) (model.UserConfig, *utils.InlineImage, error) {
	var form storyboardForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		return model.UserConfig{}, nil, uploadError(err)
	}
	if form.ImageDataURL == "" {
		return form.UserConfig, nil, nil
	}
	image, err := utils.ParseDataURL(form.ImageDataURL, "")
	if err != nil {
		return model.UserConfig{}, nil, err
	}
	if !utils.IsImageMime(image.MimeType) {
		// same filter as the drop zone: non-images are ignored, not rejected
		return form.UserConfig, nil, nil
	}
	return form.UserConfig, image, nil
}

func (h *Handler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	snap, err := h.controller.Regenerate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleParams(w http.ResponseWriter, r *http.Request) {
	var patch model.GlobalParamsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.fail(w, r, apperror.Validation("Request body must be valid JSON"))
		return
	}
	snap, err := h.controller.UpdateParams(mux.Vars(r)["id"], patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// HandleTransitions - multipart storyboard grid image + transitionCount
func (h *Handler) HandleTransitions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.fail(w, r, uploadError(err))
		return
	}

	count, err := formInt(r, "transitionCount")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cfg := model.TransitionConfig{
		TransitionCount: count,
		AdditionalNotes: r.FormValue("additionalNotes"),
	}
	image, err := formImage(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snap, err := h.controller.GenerateTransitions(r.Context(), mux.Vars(r)["id"], cfg, image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

// HandleCleanup - POST /admin/cleanup, runs expiry immediately
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	cleaned := h.sessions.CleanupExpired()
	response.JSON(w, http.StatusOK, map[string]any{
		"status":  "Cleanup completed",
		"cleaned": cleaned,
		"active":  h.sessions.Count(),
	})
}

// HandleStats - GET /stats, human readable counterpart of /metrics
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"uptime":         time.Since(h.startedAt).String(),
		"startTime":      h.startedAt,
		"activeSessions": h.sessions.Count(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := response.Error(w, err, h.development)
	event := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = log.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Str("kind", string(apperror.KindOf(err))).Msg("[Session] request failed")
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("%s must be a number", field)
	}
	return n, nil
}

// formImage - nil when no file was sent or the file is not an image
func formImage(r *http.Request, field string) (*utils.InlineImage, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Encoding(err)
	}
	defer file.Close()

	declared := header.Header.Get("Content-Type")
	if declared != "" && !utils.IsImageMime(declared) && declared != "application/octet-stream" {
		log.Ctx(r.Context()).Info().Str("mime", declared).Str("file", header.Filename).Msg("[Session] ignoring non-image upload")
		return nil, nil
	}

	image, err := utils.EncodeImage(file, declared)
	if err != nil {
		return nil, err
	}
	if !utils.IsImageMime(image.MimeType) {
		log.Ctx(r.Context()).Info().Str("mime", image.MimeType).Str("file", header.Filename).Msg("[Session] ignoring non-image upload")
		return nil, nil
	}
	return image, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.Validation("upload exceeds the maximum size of %d bytes", tooLarge.Limit)
	}
	return apperror.Validation("request body could not be parsed")
}
