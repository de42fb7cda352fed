// Package ppi allocates programmable peripheral interconnect channels and
// channel groups. Allocations are permanent and take effect immediately:
// a connected channel is enabled as soon as it is handed out.
package ppi

import (
	"fmt"
	"log"

	"github.com/sweeney/captouch/internal/hw"
)

// Allocator hands out free interconnect channels and groups.
// Not safe for concurrent use; allocation happens during one-time set-up.
type Allocator struct {
	ic     hw.Interconnect
	used   uint32 // channels claimed through this allocator
	groups uint32 // groups claimed through this allocator
}

// New creates an allocator over the given interconnect registers.
func New(ic hw.Interconnect) *Allocator {
	return &Allocator{ic: ic}
}

// Connect wires eep to tep on a free channel, enables it and returns the
// channel index. It panics when no channel is free: the board description
// asks for more wiring than the hardware has.
func (a *Allocator) Connect(eep, tep hw.Endpoint) int {
	for ch := 0; ch < a.ic.Channels(); ch++ {
		if !a.channelFree(ch) {
			continue
		}
		a.used |= 1 << ch
		a.ic.SetEndpoints(ch, eep, tep)
		a.ic.EnableChannel(ch)
		log.Printf("ppi: connected channel %d", ch)
		return ch
	}
	panic("ppi: no available channel")
}

func (a *Allocator) channelFree(ch int) bool {
	if a.used&(1<<ch) != 0 || a.ic.ChannelEnabled(ch) {
		return false
	}
	eep, tep := a.ic.Endpoints(ch)
	return eep == 0 && tep == 0
}

// NewGroup claims a free channel group and returns its index. It panics when
// every group is in use.
func (a *Allocator) NewGroup() int {
	for g := 0; g < a.ic.Groups(); g++ {
		if a.groups&(1<<g) != 0 || a.ic.Group(g) != 0 {
			continue
		}
		a.groups |= 1 << g
		return g
	}
	panic("ppi: no available group")
}

// Fork attaches a second task to an allocated channel. A channel has a
// single fork slot; forking twice panics.
func (a *Allocator) Fork(ch int, tep hw.Endpoint) {
	if ch < 0 || ch >= a.ic.Channels() || a.used&(1<<ch) == 0 {
		panic(fmt.Sprintf("ppi: fork on unallocated channel %d", ch))
	}
	if a.ic.Fork(ch) != 0 {
		panic(fmt.Sprintf("ppi: channel %d already forked", ch))
	}
	a.ic.SetFork(ch, tep)
}

// AddToGroup includes the given channels in group g.
func (a *Allocator) AddToGroup(g int, channels ...int) {
	mask := a.ic.Group(g)
	for _, ch := range channels {
		mask |= 1 << ch
	}
	a.ic.SetGroup(g, mask)
}
