package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// indexPage is where the browser front end lands after a mutation.
const indexPage = "/index.html"

func (h *Handler) List(c echo.Context) error {
	data, err := h.svc.ListJSON()
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSONBlob(http.StatusOK, data)
}

func (h *Handler) Read(c echo.Context) error {
	id, err := requiredQuery(c, "img_id")
	if err != nil {
		return err
	}
	res, err := requiredQuery(c, "res")
	if err != nil {
		return err
	}
	img, err := h.svc.Read(id, res)
	if err != nil {
		return mapStoreError(err)
	}
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(img.Data)))
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

func (h *Handler) Insert(c echo.Context) error {
	id, err := requiredQuery(c, "name")
	if err != nil {
		return err
	}
	req := c.Request()
	if req.ContentLength > h.cfg.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, h.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}
	if _, err := h.svc.Insert(id, data); err != nil {
		return mapStoreError(err)
	}
	return c.Redirect(http.StatusFound, indexPage)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := requiredQuery(c, "img_id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(id); err != nil {
		return mapStoreError(err)
	}
	return c.Redirect(http.StatusFound, indexPage)
}

func (h *Handler) Header(c echo.Context) error {
	hdr := h.svc.Header()
	return c.JSON(http.StatusOK, map[string]any{
		"name":       hdr.Name,
		"version":    hdr.Version,
		"imageCount": hdr.ValidCount,
		"maxImages":  hdr.Capacity,
		"thumbnail":  hdr.Thumb.String(),
		"small":      hdr.Small.String(),
	})
}

func (h *Handler) Snapshot(c echo.Context) error {
	snap, err := h.svc.Snapshot(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"key":       snap.Key,
		"digest":    snap.Digest,
		"size":      snap.Size,
		"reused":    snap.Reused,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
}
