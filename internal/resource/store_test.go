package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ Name string }

func TestStore_InsertBorrow(t *testing.T) {
	s := New[Empty]()
	Insert[widget](s, widget{Name: "bolt"})

	ref, err := Borrow[widget](s)
	require.NoError(t, err)
	assert.Equal(t, "bolt", ref.Get().Name)
	ref.Release()
}

func TestStore_BorrowMissing(t *testing.T) {
	s := New[Empty]()
	_, err := Borrow[widget](s)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_BorrowConflict(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, s *Store[Empty])
	}{
		{
			name: "mutable borrow blocks a second mutable borrow",
			run: func(t *testing.T, s *Store[Empty]) {
				m1, err := BorrowMut[widget](s)
				require.NoError(t, err)
				defer m1.Release()

				_, err = BorrowMut[widget](s)
				require.Error(t, err)
				assert.True(t, IsBorrowConflict(err))
			},
		},
		{
			name: "mutable borrow blocks an immutable borrow",
			run: func(t *testing.T, s *Store[Empty]) {
				m1, err := BorrowMut[widget](s)
				require.NoError(t, err)
				defer m1.Release()

				_, err = Borrow[widget](s)
				require.Error(t, err)
				assert.True(t, IsBorrowConflict(err))
			},
		},
		{
			name: "immutable borrow blocks a mutable borrow",
			run: func(t *testing.T, s *Store[Empty]) {
				r1, err := Borrow[widget](s)
				require.NoError(t, err)
				defer r1.Release()

				_, err = BorrowMut[widget](s)
				require.Error(t, err)
				assert.True(t, IsBorrowConflict(err))
			},
		},
		{
			name: "two immutable borrows coexist",
			run: func(t *testing.T, s *Store[Empty]) {
				r1, err := Borrow[widget](s)
				require.NoError(t, err)
				defer r1.Release()

				r2, err := Borrow[widget](s)
				require.NoError(t, err)
				defer r2.Release()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New[Empty]()
			Insert[widget](s, widget{Name: "bolt"})
			tt.run(t, s)
		})
	}
}

func TestStore_BorrowMutThenRelease(t *testing.T) {
	s := New[Empty]()
	Insert[widget](s, widget{Name: "bolt"})

	m, err := BorrowMut[widget](s)
	require.NoError(t, err)
	m.Get().Name = "rivet"
	m.Release()

	r, err := Borrow[widget](s)
	require.NoError(t, err)
	assert.Equal(t, "rivet", r.Get().Name)
	r.Release()
}

func TestStore_RemoveAndTryRemove(t *testing.T) {
	s := New[Empty]()
	Insert[widget](s, widget{Name: "bolt"})

	v, ok := Remove[widget](s)
	require.True(t, ok)
	assert.Equal(t, "bolt", v.Name)

	_, ok = Remove[widget](s)
	assert.False(t, ok)

	_, err := TryRemove[widget](s)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStore_Contains(t *testing.T) {
	s := New[Empty]()
	assert.False(t, Contains[widget](s))
	Insert[widget](s, widget{Name: "bolt"})
	assert.True(t, Contains[widget](s))
}

func TestSetUpFrom(t *testing.T) {
	s := New[Empty]()
	Insert[widget](s, widget{Name: "bolt"})
	su := SetUpFrom(s)
	assert.True(t, Contains[widget](su))
}
