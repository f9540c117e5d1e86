package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Domenick1991/railbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		fields map[string]string
	}{
		{
			name:   "validation",
			err:    domain.NewValidationError("seat", "number must be in available range: (1, 50)"),
			status: http.StatusBadRequest,
			fields: map[string]string{"seat": "number must be in available range: (1, 50)"},
		},
		{
			name:   "reference",
			err:    fmt.Errorf("create route: %w", &domain.ReferenceError{Field: "source", ID: 5}),
			status: http.StatusBadRequest,
			fields: map[string]string{"source": "object with id 5 does not exist"},
		},
		{name: "conflict", err: fmt.Errorf("station with this name %w", domain.ErrConflict), status: http.StatusConflict},
		{name: "ticket taken", err: domain.ErrTicketTaken, status: http.StatusConflict},
		{name: "not found", err: fmt.Errorf("trip %w", domain.ErrNotFound), status: http.StatusNotFound},
		{name: "unexpected", err: errors.New("connection reset"), status: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext("GET", "/", nil)
			writeError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var response errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tc.fields, response.Fields)
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", response.Error)
			}
		})
	}
}
