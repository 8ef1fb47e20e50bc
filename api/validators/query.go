package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/types"
)

func ParseQueryFloat(r *http.Request, key string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter required").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

func ParseQueryBool(r *http.Request, key string) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}

// ParseBounds reads the four bounding box corners from the query string.
func ParseBounds(r *http.Request) (types.Bounds, error) {
	var bounds types.Bounds
	var err error
	if bounds.MinLat, err = ParseQueryFloat(r, "minLat"); err != nil {
		return types.Bounds{}, err
	}
	if bounds.MaxLat, err = ParseQueryFloat(r, "maxLat"); err != nil {
		return types.Bounds{}, err
	}
	if bounds.MinLng, err = ParseQueryFloat(r, "minLng"); err != nil {
		return types.Bounds{}, err
	}
	if bounds.MaxLng, err = ParseQueryFloat(r, "maxLng"); err != nil {
		return types.Bounds{}, err
	}
	if !bounds.Valid() {
		return types.Bounds{}, pkgerrors.New(pkgerrors.CodeValidation, "bounding box is malformed")
	}
	return bounds, nil
}
