package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewDomainError("NOT_FOUND", "Invite not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))

	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "Invite not found", de.Error())
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDomainErrorWithCause("UPSTREAM", "Upstream failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10}.Normalize()
	assert.Equal(t, 20, f.Offset())
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)

	empty := NewPaginated[int](nil, 0, 1, 10)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestAggregateEvents(t *testing.T) {
	agg := NewBaseAggregateRoot()
	ev := NewBaseDomainEvent("thing.happened", "Thing", agg.ID)
	agg.AddDomainEvent(&ev)

	assert.Len(t, agg.GetDomainEvents(), 1)
	assert.Equal(t, "thing.happened", agg.GetDomainEvents()[0].EventType())
	agg.ClearDomainEvents()
	assert.Empty(t, agg.GetDomainEvents())
}
