// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bigmachine"
	"golang.org/x/sync/errgroup"
)

// Bigmachine configures the session's cluster topology from a
// bigmachine cluster: n machines are started on the provided system
// and their addresses become the control-address list, one process
// per node, ranked in start order. The calling process drives the
// cluster and resolves explicit-rank tokens as rank 0. The returned
// session's shutdown function stops the bigmachine.
//
// Bigmachine wiring stops at topology bookkeeping; it does not ship
// work to the machines.
func Bigmachine(system bigmachine.System, n int, params ...bigmachine.Param) Option {
	if n <= 0 {
		panic("bigplace.Bigmachine: n <= 0")
	}
	return func(s *Session) {
		s.boot = func(s *Session) (func(), error) {
			b := bigmachine.Start(system)
			machines, err := startTopology(context.Background(), b, n, params...)
			if err != nil {
				b.Shutdown()
				return nil, err
			}
			addrs := make([]string, len(machines))
			for i, m := range machines {
				addrs[i] = m.Addr
			}
			s.rank = 0
			s.nodeSize = int64(n)
			s.ctrlAddrs = addrs
			stop := make(chan struct{})
			watchMachines(machines, stop)
			return func() {
				close(stop)
				b.Shutdown()
			}, nil
		}
	}
}

// startTopology starts n machines and waits for every one of them to
// come up. Unlike a work-stealing scheduler, placement bookkeeping
// needs the complete world: a machine that fails to boot fails the
// bootstrap.
func startTopology(ctx context.Context, b *bigmachine.B, n int, params ...bigmachine.Param) ([]*bigmachine.Machine, error) {
	machines, err := b.Start(ctx, n, params...)
	if err != nil {
		return nil, errors.E(err, "bigplace: starting machines")
	}
	var g errgroup.Group
	for i := range machines {
		m := machines[i]
		g.Go(func() error {
			<-m.Wait(bigmachine.Running)
			if err := m.Err(); err != nil {
				return errors.E(err, fmt.Sprintf("bigplace: machine %s failed to start", m.Addr))
			}
			log.Printf("bigplace: machine %v is ready", m.Addr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return machines, nil
}

// watchMachines logs machine loss. A lost machine invalidates
// placements naming its rank; deciding what to do about that belongs
// to the caller, so the watcher only reports. Watchers are disarmed by
// closing stop before the session's own shutdown stops the machines,
// so a clean teardown is quiet.
func watchMachines(machines []*bigmachine.Machine, stop <-chan struct{}) {
	for _, m := range machines {
		m := m
		go func() {
			select {
			case <-m.Wait(bigmachine.Stopped):
				log.Error.Printf("bigplace: machine %s stopped", m.Addr)
			case <-stop:
			}
		}()
	}
}
