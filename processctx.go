// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// A ProcessCtx describes this process's position in the cluster: its
// own rank, the number of physical nodes, and the control address of
// every participating process, indexed by rank. It is an immutable
// value populated once at bootstrap and threaded explicitly into
// placement resolution; bigplace keeps no process-global copy.
type ProcessCtx struct {
	// Rank is this process's rank in [0, WorldSize()).
	Rank int64
	// NodeSize is the number of physical nodes in the cluster. Several
	// processes may share one node; WorldSize() is always a multiple
	// of NodeSize.
	NodeSize int64
	// CtrlAddrs lists the control address of every process, indexed by
	// rank. Its length is the world size.
	CtrlAddrs []string
}

// NewProcessCtx validates and returns a process context. The rank must
// fall inside the world, and the node count must be positive and
// divide the world size evenly.
func NewProcessCtx(rank, nodeSize int64, ctrlAddrs []string) (ProcessCtx, error) {
	world := int64(len(ctrlAddrs))
	switch {
	case world == 0:
		return ProcessCtx{}, errors.E(errors.Invalid, "process context: no control addresses")
	case nodeSize < 1:
		return ProcessCtx{}, errors.E(errors.Invalid, fmt.Sprintf("process context: node size %d < 1", nodeSize))
	case world%nodeSize != 0:
		return ProcessCtx{}, errors.E(errors.Invalid, fmt.Sprintf("process context: world size %d not divisible by node size %d", world, nodeSize))
	case rank < 0 || rank >= world:
		return ProcessCtx{}, errors.E(errors.Invalid, fmt.Sprintf("process context: rank %d outside world of %d processes", rank, world))
	}
	addrs := make([]string, world)
	copy(addrs, ctrlAddrs)
	return ProcessCtx{Rank: rank, NodeSize: nodeSize, CtrlAddrs: addrs}, nil
}

// WorldSize returns the total number of processes in the cluster.
func (p ProcessCtx) WorldSize() int64 {
	return int64(len(p.CtrlAddrs))
}

// NumProcsPerNode returns the number of processes sharing each node.
func (p ProcessCtx) NumProcsPerNode() int64 {
	return p.WorldSize() / p.NodeSize
}

func (p ProcessCtx) String() string {
	return fmt.Sprintf("rank %d of %d (%d nodes)", p.Rank, p.WorldSize(), p.NodeSize)
}
