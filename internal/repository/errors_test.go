package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"fulfillment_service/internal/domain"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestAsTransient(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"lock not available", &pq.Error{Code: "55P03"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"query canceled", &pq.Error{Code: "57014"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"check violation", &pq.Error{Code: "23514"}, false},
		{"bad connection", driver.ErrBadConn, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"wrapped deadlock", fmt.Errorf("exec: %w", &pq.Error{Code: "40P01"}), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := asTransient("test op", tc.err)
			if !tc.transient {
				assert.Nil(t, got)
				return
			}
			assert.True(t, domain.IsTransient(got))
		})
	}
}

func TestPqCode(t *testing.T) {
	assert.True(t, pqCode(&pq.Error{Code: "23505"}, "23505"))
	assert.True(t, pqCode(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), "23505"))
	assert.False(t, pqCode(&pq.Error{Code: "23503"}, "23505"))
	assert.False(t, pqCode(errors.New("boom"), "23505"))
	assert.False(t, pqCode(nil, "23505"))
}

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		count, page  int
		limit, offset int
	}{
		{10, 1, 10, 0},
		{10, 3, 10, 20},
		{0, 1, 10, 0},
		{-5, -2, 10, 0},
		{500, 2, 100, 100},
	}

	for _, tc := range cases {
		limit, offset := normalizePage(tc.count, tc.page)
		assert.Equal(t, tc.limit, limit, "count=%d page=%d", tc.count, tc.page)
		assert.Equal(t, tc.offset, offset, "count=%d page=%d", tc.count, tc.page)
	}
}
