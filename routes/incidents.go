package routes

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dular-server/apperr"
	"dular-server/models"
	"dular-server/services"
)

// attachmentField is the multipart field carrying evidence images.
const attachmentField = "attachments"

// sniffMime reads the first bytes of the upload; the client's Content-Type
// is not trusted.
func sniffMime(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func uploadsFrom(form *multipart.Form) ([]services.Upload, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File[attachmentField]
	if len(headers) > services.MaxIncidentFiles {
		return nil, apperr.BadRequest("at most 3 attachments are allowed")
	}
	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		mime, err := sniffMime(fh)
		if err != nil {
			return nil, apperr.BadRequest("unreadable attachment " + fh.Filename)
		}
		uploads = append(uploads, services.Upload{
			Filename: fh.Filename,
			Mime:     mime,
			Size:     fh.Size,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads, nil
}

func (h *handlers) createIncident(c *gin.Context) {
	var req models.CreateIncidentRequest
	var uploads []services.Upload

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, h.log, bindError(err))
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			respondError(c, h.log, apperr.BadRequest("Invalid form data"))
			return
		}
		if uploads, err = uploadsFrom(form); err != nil {
			respondError(c, h.log, err)
			return
		}
	} else if !bindJSON(c, h.log, &req) {
		return
	}

	report, err := h.incidents.Create(c.Request.Context(), actorFrom(c), req, uploads)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, report)
}

func (h *handlers) checkin(c *gin.Context) {
	var req models.SafetyRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	ev, err := h.incidents.Checkin(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, ev)
}

func (h *handlers) sos(c *gin.Context) {
	var req models.SafetyRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.log, &req) {
		return
	}
	ev, report, err := h.incidents.SOS(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"event": ev, "incident": report})
}
