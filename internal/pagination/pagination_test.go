package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/sessions?page=2&pageSize=50", nil)
	p := FromRequest(r)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 50, p.PageSize)

	r = httptest.NewRequest("GET", "/sessions", nil)
	p = FromRequest(r)
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)

	r = httptest.NewRequest("GET", "/sessions?page=abc&pageSize=xyz", nil)
	p = FromRequest(r)
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
}

func TestClamp(t *testing.T) {
	p := Clamp(Params{Page: -3, PageSize: 0})
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)

	p = Clamp(Params{Page: 1, PageSize: 5000})
	assert.Equal(t, MaxPageSize, p.PageSize)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 40, Params{Page: 2, PageSize: 20}.Offset())
}

func TestNewPage(t *testing.T) {
	p := NewPage([]string{"a", "b"}, Params{Page: 0, PageSize: 2}, 5)
	assert.Equal(t, []string{"a", "b"}, p.Items)
	assert.Equal(t, int64(5), p.TotalItems)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPage([]string{}, Params{Page: 0, PageSize: 20}, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.NotNil(t, p.Items)
}

func TestNewPageNilItems(t *testing.T) {
	p := NewPage[string](nil, Params{Page: 0, PageSize: 20}, 0)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
}
