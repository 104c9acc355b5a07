package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 45)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.HasNext())
	require.False(t, p.HasPrev())
}

func TestNewPaginationClampsPastEnd(t *testing.T) {
	p := NewPagination(9, 20, 45)
	require.Equal(t, 3, p.Page)
	start, end := p.Bounds()
	require.Equal(t, 40, start)
	require.Equal(t, 45, end)
	require.False(t, p.HasNext())
}

func TestPaginationEmptyListing(t *testing.T) {
	p := NewPagination(2, 10, 0)
	start, end := p.Bounds()
	require.Equal(t, 0, start)
	require.Equal(t, 0, end)
	require.Equal(t, 0, p.TotalPages)
}
