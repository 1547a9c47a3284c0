package app

import (
	"fmt"

	"chat_feed_sync/internal/feed/domain"
)

// RoomTag identifies the room a request was issued for. Generation changes on
// every room switch, so reselecting the same room still invalidates old requests.
type RoomTag struct {
	RoomID     string
	Generation uint64
}

// Ticket one outstanding history request
type Ticket struct {
	Tag  RoomTag
	Page int
	seq  uint64
}

// Paginator guards history loading: one request at a time, none once the
// history is exhausted.
type Paginator struct {
	pageSize int
	inFlight *Ticket
	seq      uint64
}

// NewPaginator pageSize must be positive
func NewPaginator(pageSize int) *Paginator {
	return &Paginator{pageSize: pageSize}
}

// PageSize records one page is expected to hold
func (p *Paginator) PageSize() int { return p.pageSize }

// HasMoreAfter a full page suggests an older one exists
func (p *Paginator) HasMoreAfter(n int) bool {
	return n >= p.pageSize
}

// Begin issues a ticket for page of the room tagged tag
func (p *Paginator) Begin(tag RoomTag, page int, hasMore bool) (Ticket, error) {
	if p.inFlight != nil {
		return Ticket{}, fmt.Errorf("%w: room %s page %d", domain.ErrBackfillInFlight, p.inFlight.Tag.RoomID, p.inFlight.Page)
	}
	if !hasMore {
		return Ticket{}, domain.ErrHistoryExhausted
	}

	p.seq++
	t := Ticket{Tag: tag, Page: page, seq: p.seq}
	p.inFlight = &t
	return t, nil
}

// Accept settles t. False when t is not the outstanding ticket or was issued
// for another room than current; its page must then be discarded.
func (p *Paginator) Accept(t Ticket, current RoomTag) bool {
	if !p.owns(t) {
		return false
	}
	p.inFlight = nil
	return t.Tag == current
}

// Release settles a failed request
func (p *Paginator) Release(t Ticket) {
	if p.owns(t) {
		p.inFlight = nil
	}
}

// Reset forgets the outstanding ticket, used on room switch
func (p *Paginator) Reset() {
	p.inFlight = nil
}

// InFlight a request is outstanding
func (p *Paginator) InFlight() bool {
	return p.inFlight != nil
}

// InFlightPage page of the outstanding request, 0 when none
func (p *Paginator) InFlightPage() int {
	if p.inFlight == nil {
		return 0
	}
	return p.inFlight.Page
}

func (p *Paginator) owns(t Ticket) bool {
	return p.inFlight != nil && p.inFlight.seq == t.seq
}
