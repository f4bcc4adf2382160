package handlers

import (
	"errors"
	"net/http"
	"strings"

	"imgfs/internal/imgfs"
	"imgfs/internal/service"

	"github.com/labstack/echo/v4"
)

func mapStoreError(err error) error {
	if errors.Is(err, service.ErrSnapshotsDisabled) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	switch imgfs.CodeOf(err) {
	case imgfs.ErrInvalidArgument, imgfs.ErrInvalidIdentifier, imgfs.ErrResolution:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case imgfs.ErrImageNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case imgfs.ErrDuplicateID:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case imgfs.ErrStoreFull:
		return echo.NewHTTPError(http.StatusInsufficientStorage, err.Error())
	case imgfs.ErrImageLibrary:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// requiredQuery returns the trimmed query parameter or a 400 naming it.
func requiredQuery(c echo.Context, key string) (string, error) {
	v := strings.TrimSpace(c.QueryParam(key))
	if v == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, imgfs.ErrInvalidArgument.Error()+": missing "+key)
	}
	return v, nil
}
