package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		size     int
		expected int
	}{
		{name: "empty", total: 0, size: 10, expected: 0},
		{name: "exact", total: 20, size: 10, expected: 2},
		{name: "remainder", total: 25, size: 10, expected: 3},
		{name: "single item", total: 1, size: 10, expected: 1},
		{name: "zero size", total: 5, size: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TotalPages(tt.total, tt.size))
		})
	}
}

func TestNew(t *testing.T) {
	m := New(25, 1, 10)
	assert.Equal(t, Metadata{Total: 25, PageNumber: 1, TotalPages: 3, PageSize: 10}, m)
	assert.Equal(t, 0, m.Skip())
	assert.Equal(t, 10, m.Limit())

	m = New(25, 3, 10)
	assert.Equal(t, 20, m.Skip())

	m = New(25, 0, 0)
	assert.Equal(t, 1, m.PageNumber)
	assert.Equal(t, DefaultPageSize, m.PageSize)

	m = New(25, 1, 1000)
	assert.Equal(t, MaxPageSize, m.PageSize)
	assert.Equal(t, 1, m.TotalPages)
}

func TestLatest(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name     string
		total    int64
		page     *int
		expected int
	}{
		{name: "omitted page selects last", total: 25, page: nil, expected: 3},
		{name: "page beyond total selects last", total: 25, page: intPtr(9), expected: 3},
		{name: "explicit page kept", total: 25, page: intPtr(2), expected: 2},
		{name: "explicit last page", total: 25, page: intPtr(3), expected: 3},
		{name: "empty set", total: 0, page: nil, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Latest(tt.total, tt.page, 10)
			assert.Equal(t, tt.expected, m.PageNumber)
			assert.Equal(t, TotalPages(tt.total, 10), m.TotalPages)
		})
	}
}

func TestLatestMatchesExplicitLastPage(t *testing.T) {
	for total := int64(0); total < 45; total++ {
		latest := Latest(total, nil, 10)
		last := latest.TotalPages
		explicit := Latest(total, &last, 10)
		assert.Equal(t, latest.Skip(), explicit.Skip(), "total=%d", total)
	}
}
