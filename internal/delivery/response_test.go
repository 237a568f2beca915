package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fulfillment_service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "not found",
			err:  &domain.NotFoundError{Entity: "order", ID: 5},
			want: http.StatusNotFound,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("Repository: %w", &domain.NotFoundError{Entity: "user", ID: 1}),
			want: http.StatusNotFound,
		},
		{
			name: "validation",
			err:  &domain.ValidationError{Field: "items", Reason: "empty"},
			want: http.StatusBadRequest,
		},
		{
			name: "insufficient stock",
			err:  &domain.InsufficientStockError{ProductID: 1, Requested: 5, Available: 2},
			want: http.StatusConflict,
		},
		{
			name: "transient",
			err:  &domain.TransientError{Op: "place order", Err: errors.New("deadlock detected")},
			want: http.StatusServiceUnavailable,
		},
		{
			name: "duplicate",
			err:  &domain.AlreadyExistsError{Entity: "user", Detail: "username 'alice'"},
			want: http.StatusConflict,
		},
		{
			name: "wrapped duplicate",
			err:  fmt.Errorf("Repository: %w", &domain.AlreadyExistsError{Entity: "user", Detail: "email 'a@b.c'"}),
			want: http.StatusConflict,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mapErrorToStatus(tc.err))
		})
	}
}
