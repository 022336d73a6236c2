package luasched

import (
	"strconv"
	"sync/atomic"
)

// ThreadID identifies a scheduled thread within one Runtime. IDs are assigned
// in increasing order and never reused.
type ThreadID uint64

func (id ThreadID) String() string {
	return "thread#" + strconv.FormatUint(uint64(id), 10)
}

type idGenerator struct {
	last atomic.Uint64
}

func (g *idGenerator) next() ThreadID {
	return ThreadID(g.last.Add(1))
}
