package app

import (
	"testing"

	"chat_feed_sync/internal/feed/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginator_HasMoreAfter(t *testing.T) {
	p := NewPaginator(20)
	assert.True(t, p.HasMoreAfter(20))
	assert.True(t, p.HasMoreAfter(21))
	assert.False(t, p.HasMoreAfter(19))
	assert.False(t, p.HasMoreAfter(0))
}

func TestPaginator_OneRequestAtATime(t *testing.T) {
	p := NewPaginator(20)
	tag := RoomTag{RoomID: "room-1", Generation: 1}

	first, err := p.Begin(tag, 2, true)
	require.NoError(t, err)
	assert.Equal(t, 2, p.InFlightPage())

	_, err = p.Begin(tag, 2, true)
	assert.ErrorIs(t, err, domain.ErrBackfillInFlight)

	assert.True(t, p.Accept(first, tag))
	assert.False(t, p.InFlight())

	// a settled ticket is not accepted twice
	assert.False(t, p.Accept(first, tag))
}

func TestPaginator_ExhaustedIssuesNothing(t *testing.T) {
	p := NewPaginator(20)
	_, err := p.Begin(RoomTag{RoomID: "room-1"}, 3, false)
	assert.ErrorIs(t, err, domain.ErrHistoryExhausted)
	assert.False(t, p.InFlight())
}

func TestPaginator_StaleTicketRejected(t *testing.T) {
	p := NewPaginator(20)
	old := RoomTag{RoomID: "room-1", Generation: 1}

	ticket, err := p.Begin(old, 2, true)
	require.NoError(t, err)

	// same room selected again
	assert.False(t, p.Accept(ticket, RoomTag{RoomID: "room-1", Generation: 2}))
	assert.False(t, p.InFlight())
}

func TestPaginator_ResetAndRelease(t *testing.T) {
	p := NewPaginator(20)
	tag := RoomTag{RoomID: "room-1", Generation: 1}

	ticket, err := p.Begin(tag, 2, true)
	require.NoError(t, err)
	p.Reset()
	assert.False(t, p.InFlight())

	next, err := p.Begin(tag, 2, true)
	require.NoError(t, err)

	// releasing the superseded ticket leaves the new one outstanding
	p.Release(ticket)
	assert.True(t, p.InFlight())
	assert.False(t, p.Accept(ticket, tag))

	p.Release(next)
	assert.False(t, p.InFlight())
}

func TestRoomSelector(t *testing.T) {
	var sel RoomSelector
	assert.Nil(t, sel.Initial(""))
	assert.Nil(t, sel.Select("   "))

	room := sel.Initial("room-7")
	require.NotNil(t, room)
	assert.Equal(t, *domain.NewPlaceholderRoom("room-7"), *room)
}
