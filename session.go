// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bigplace/resource"
)

// Session owns the published placement state of this process: the
// frozen resource snapshot, the process context, and the interner that
// canonicalizes placements. A session is created by Start, after which
// its state is read-only; queries against a session that has not been
// published fail with an error matching ErrUnpublishedSession.
type Session struct {
	// Bootstrap inputs, staged by options until Start publishes.
	config    resource.Config
	rank      int64
	nodeSize  int64
	ctrlAddrs []string
	boot      func(s *Session) (func(), error)

	pctx      ProcessCtx
	res       *resource.Desc
	interner  *Interner
	published bool
}

// An Option represents a session configuration parameter value.
type Option func(s *Session)

// Resources configures the session's resource snapshot.
func Resources(config resource.Config) Option {
	return func(s *Session) {
		s.config = config
	}
}

// Cluster configures the session's cluster topology explicitly: this
// process's rank, the number of physical nodes, and the control
// address of every process, indexed by rank.
func Cluster(rank, nodeSize int64, ctrlAddrs ...string) Option {
	if len(ctrlAddrs) == 0 {
		panic("bigplace.Cluster: no control addresses")
	}
	return func(s *Session) {
		s.rank = rank
		s.nodeSize = nodeSize
		s.ctrlAddrs = ctrlAddrs
	}
}

// Start publishes a session from the provided options and returns it
// together with a shutdown function. Without options the session
// describes a single-process world: rank 0, one node, one CPU device.
// With debug mode on, the published topology is logged.
func Start(options ...Option) (*Session, func(), error) {
	s := &Session{
		rank:      0,
		nodeSize:  1,
		ctrlAddrs: []string{"localhost:0"},
	}
	for _, opt := range options {
		opt(s)
	}
	shutdown := func() {}
	if s.boot != nil {
		var err error
		if shutdown, err = s.boot(s); err != nil {
			return nil, nil, err
		}
	}
	if s.config.MachineNum == 0 {
		s.config.MachineNum = int(s.nodeSize)
	}
	if s.config.CPUDeviceNum == 0 {
		s.config.CPUDeviceNum = 1
	}
	pctx, err := NewProcessCtx(s.rank, s.nodeSize, s.ctrlAddrs)
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	s.pctx = pctx
	s.res = resource.New(s.config, pctx.NumProcsPerNode())
	s.interner = NewInterner()
	s.published = true
	if s.res.DebugMode() {
		log.Printf("bigplace: session published: %s; %s", s.pctx, s.res)
	}
	return s, shutdown, nil
}

// Resource returns the published resource snapshot.
func (s *Session) Resource() (*resource.Desc, error) {
	if !s.published {
		return nil, errUnpublished()
	}
	return s.res, nil
}

// Process returns the published process context.
func (s *Session) Process() (ProcessCtx, error) {
	if !s.published {
		return ProcessCtx{}, errUnpublished()
	}
	return s.pctx, nil
}

// Placement resolves conf against the session's topology and returns
// the canonical instance of the resulting placement. Identical
// configurations share one ParallelDesc for the life of the session.
func (s *Session) Placement(conf ParallelConf) (*ParallelDesc, error) {
	if !s.published {
		return nil, errUnpublished()
	}
	desc, inserted, err := s.interner.Intern(s.pctx, s.res, conf)
	if err != nil {
		return nil, err
	}
	// Log each distinct placement once, when it is first interned.
	if inserted && s.res.DebugMode() {
		log.Printf("bigplace: placement %s: %d devices", desc, desc.ParallelNum())
	}
	return desc, nil
}

func errUnpublished() error {
	return errors.E(errors.Precondition, "bigplace: session not published; call Start first")
}
