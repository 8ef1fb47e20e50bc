package responses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/types"
)

func TestWriteSuccess_WrapsDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteSuccess(rec, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope types.SuccessEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestWriteError_MapsCodeToStatusAndMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeNotFound, "property not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeNotFound), envelope.Error.Code)
	assert.Equal(t, "property not found", envelope.Error.Message)
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeInternal, "db exploded at 0x34"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "internal error", envelope.Error.Message)
}

func TestWriteError_IncludesValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"latitude": "is required"})

	WriteError(context.Background(), nil, rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error.Details)
}
