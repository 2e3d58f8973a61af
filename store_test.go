package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreGetMiss(t *testing.T) {
	s := NewStore[testUser, string]()

	assert.Nil(t, s.Get("missing"))
	assert.Equal(t, 0, s.Len())
}

func TestStorePutAndGet(t *testing.T) {
	s := NewStore[testUser, string]()

	a := &testUser{ID: "a", Name: "A"}
	b := &testUser{ID: "b", Name: "B"}

	s.Put([]*testUser{a, b})

	assert.Same(t, a, s.Get("a"))
	assert.Same(t, b, s.Get("b"))
	assert.Equal(t, 2, s.Len())
}

func TestStorePutReplacesWholesale(t *testing.T) {
	s := NewStore[testUser, string]()

	s.Put([]*testUser{{ID: "a", Name: "old"}})
	s.Put([]*testUser{{ID: "a", Name: "new"}})

	assert.Equal(t, "new", s.Get("a").Name)
	assert.Equal(t, 1, s.Len())
}

func TestStorePutLastWriteWinsWithinOneCall(t *testing.T) {
	s := NewStore[testUser, string]()

	s.Put([]*testUser{
		{ID: "a", Name: "first"},
		{ID: "a", Name: "second"},
	})

	assert.Equal(t, "second", s.Get("a").Name)
	assert.Equal(t, 1, s.Len())
}

func TestStorePutIsIdempotent(t *testing.T) {
	s := NewStore[testUser, string]()

	models := []*testUser{{ID: "a"}, {ID: "b"}}

	s.Put(models)
	s.Put(models)

	assert.Equal(t, 2, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore[testUser, string]()

	s.Put([]*testUser{{ID: "a"}, {ID: "b"}})

	s.Remove([]string{"a", "never-existed"})

	assert.Nil(t, s.Get("a"))
	assert.NotNil(t, s.Get("b"))
	assert.Equal(t, 1, s.Len())
}
