package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/apperr"
	"couponme/api/internal/middleware"
	"couponme/api/internal/service"
)

func (h HandlerSet) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Uploads.MaxBytes+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, apperr.New(apperr.KindValidation, apperr.MsgFileTooLarge).With("field", "file"))
			return
		}
		respondError(c, apperr.New(apperr.KindValidation, apperr.MsgFileRequired).With("field", "file"))
		return
	}
	defer file.Close()

	result, err := h.services.Uploads.Upload(c.Request.Context(), middleware.CurrentUser(c), service.UploadInput{
		File:   file,
		Header: header,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.URL})
}
