package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestDefaults(t *testing.T) {
	p := PageRequest{}
	p.Defaults()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)

	p = PageRequest{Page: 3, PageSize: 500}
	p.Defaults()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[int](nil, 1, 20, 41)
	assert.Equal(t, 3, resp.TotalPages)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestMap(t *testing.T) {
	resp := NewPageResponse([]int{1, 2}, 2, 2, 4)
	mapped := Map(resp, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, mapped.Data)
	assert.Equal(t, 2, mapped.Page)
	assert.Equal(t, int64(4), mapped.TotalItems)
	assert.Equal(t, 2, mapped.TotalPages)
}
