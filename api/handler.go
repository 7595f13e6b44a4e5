package api

import (
    "errors"
    "fmt"
    "io"
    "log"
    "net/http"

    "convkit/config"
    "convkit/fetch"
    "convkit/gallery"
    "convkit/pipeline"
    "convkit/session"
    "convkit/throttle"
    "convkit/tools"
    "github.com/gin-gonic/gin"
)

// Deps carries the collaborators the handlers need.
type Deps struct {
    Cfg      *config.Config
    Registry *tools.Registry
    Sessions *session.Manager
    Fetcher  *fetch.Fetcher
    Guard    *throttle.Guard
    Gallery  *gallery.Gallery
}

type Handler struct {
    deps Deps
}

func NewHandler(deps Deps) *Handler {
    return &Handler{deps: deps}
}

type CreateSessionRequest struct {
    Tool string `json:"tool" binding:"required"`
}

type AddURLRequest struct {
    URL string `json:"url" binding:"required"`
}

type ConvertRequest struct {
    Params map[string]string `json:"params"`
}

// sessionState is the snapshot every session endpoint responds with.
func sessionState(s *session.Session) gin.H {
    return gin.H{
        "sessionId":    s.ID,
        "tool":         s.Tool.Name,
        "items":        s.Batch.Snapshot(),
        "pendingCount": s.Batch.PendingCount(),
    }
}

// handleListTools lists every available tool.
func (h *Handler) handleListTools(c *gin.Context) {
    c.JSON(http.StatusOK, h.deps.Registry.List())
}

// handleCreateSession opens a queue for one tool.
func (h *Handler) handleCreateSession(c *gin.Context) {
    var req CreateSessionRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    s, err := h.deps.Sessions.Create(req.Tool)
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusCreated, sessionState(s))
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
    s, err := h.deps.Sessions.Get(c.Param("sessionId"))
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return nil, false
    }
    return s, true
}

// handleGetSession returns the current queue snapshot.
func (h *Handler) handleGetSession(c *gin.Context) {
    s, ok := h.session(c)
    if !ok {
        return
    }
    c.JSON(http.StatusOK, sessionState(s))
}

// handleDeleteSession clears the queue and ends the session.
func (h *Handler) handleDeleteSession(c *gin.Context) {
    if _, ok := h.session(c); !ok {
        return
    }
    if err := h.deps.Sessions.Delete(c.Param("sessionId")); err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"message": "Session cleared"})
}

// handleAddFiles admits uploaded files into the session's queue.
// Files past the tool's capacity are dropped, matching the upload
// widget's behavior.
func (h *Handler) handleAddFiles(c *gin.Context) {
    s, ok := h.session(c)
    if !ok {
        return
    }

    form, err := c.MultipartForm()
    if err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
        return
    }
    uploads := form.File["files"]
    if len(uploads) == 0 {
        c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
        return
    }

    files := make([]pipeline.File, 0, len(uploads))
    for _, u := range uploads {
        f, err := u.Open()
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("could not read upload %q: %v", u.Filename, err)})
            return
        }
        data, err := io.ReadAll(f)
        f.Close()
        if err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("could not read upload %q: %v", u.Filename, err)})
            return
        }
        files = append(files, pipeline.File{
            Name: u.Filename,
            Type: u.Header.Get("Content-Type"),
            Data: data,
        })
    }

    queued := s.Batch.AddFiles(files)
    log.Printf("Session %s: queued %d of %d uploads", s.ID, queued, len(files))
    c.JSON(http.StatusOK, sessionState(s))
}

// handleAddURL fetches a remote file and admits it through the same
// path as uploads. Fetch failures never create queue items.
func (h *Handler) handleAddURL(c *gin.Context) {
    s, ok := h.session(c)
    if !ok {
        return
    }

    var req AddURLRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    // The tool's per-file limit applies to remote files too, so an
    // oversized download is refused here instead of landing in the
    // queue as a failed item.
    res, err := h.deps.Fetcher.Fetch(c.Request.Context(), req.URL, s.Tool.FetchType, s.Tool.Policy.MaxItemSize)
    if err != nil {
        status := http.StatusBadGateway
        switch {
        case errors.Is(err, fetch.ErrTypeMismatch):
            status = http.StatusBadRequest
        case errors.Is(err, fetch.ErrTooLarge):
            status = http.StatusRequestEntityTooLarge
        }
        c.JSON(status, gin.H{"error": err.Error()})
        return
    }

    s.Batch.AddFiles([]pipeline.File{{Name: res.Name, Type: res.Type, Data: res.Data}})
    c.JSON(http.StatusOK, sessionState(s))
}

// handleConvert processes every pending item with the request's params.
func (h *Handler) handleConvert(c *gin.Context) {
    s, ok := h.session(c)
    if !ok {
        return
    }

    var req ConvertRequest
    if c.Request.ContentLength > 0 {
        if err := c.ShouldBindJSON(&req); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
            return
        }
    }

    if s.Batch.PendingCount() > 0 {
        if err := h.deps.Guard.Check(); err != nil {
            c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("insufficient system resources: %v", err)})
            return
        }
    }

    if err := s.Batch.ConvertAll(c.Request.Context(), pipeline.Params(req.Params)); err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, sessionState(s))
}

// handleDownload streams a done item's output artifact.
func (h *Handler) handleDownload(c *gin.Context) {
    s, ok := h.session(c)
    if !ok {
        return
    }

    rc, artifact, err := s.Batch.OpenArtifact(c.Param("itemId"))
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return
    }
    defer rc.Close()

    c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
    c.DataFromReader(http.StatusOK, artifact.Blob.Size(), artifact.Type, rc, nil)
}

// handleGalleryList lists the portfolio photos.
func (h *Handler) handleGalleryList(c *gin.Context) {
    photos, err := h.deps.Gallery.List()
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, photos)
}

// handleGalleryPhoto serves one original photo.
func (h *Handler) handleGalleryPhoto(c *gin.Context) {
    data, mimeType, err := h.deps.Gallery.Open(c.Param("name"))
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return
    }
    c.Data(http.StatusOK, mimeType, data)
}

// handleGalleryThumbnail serves a generated thumbnail.
func (h *Handler) handleGalleryThumbnail(c *gin.Context) {
    data, err := h.deps.Gallery.Thumbnail(c.Param("name"))
    if err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
        return
    }
    c.Data(http.StatusOK, "image/jpeg", data)
}
