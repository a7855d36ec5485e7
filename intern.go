// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"sync"

	"github.com/grailbio/bigplace/resource"
)

// An Interner hands out canonical ParallelDesc instances: all
// configurations that resolve to the same placement share one
// description, so pointer identity implies placement identity and
// downstream caches (collective groups, dispatch tables) stay
// deduplicated. Interners are safe for concurrent use; the lock covers
// only the lookup-or-insert step, not resolution itself.
type Interner struct {
	mu    sync.Mutex
	descs map[string]*ParallelDesc
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{descs: make(map[string]*ParallelDesc)}
}

// Intern resolves conf and returns the canonical instance of the
// resulting placement, reporting whether this call inserted it (that
// is, whether the placement had not been seen before). When two
// goroutines race to intern equivalent configurations, the first
// inserted instance wins, both receive it, and exactly one call
// reports the insertion.
func (it *Interner) Intern(pctx ProcessCtx, res *resource.Desc, conf ParallelConf) (*ParallelDesc, bool, error) {
	desc, err := NewParallelDesc(pctx, res, conf)
	if err != nil {
		return nil, false, err
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	if canon, ok := it.descs[desc.key]; ok {
		return canon, false, nil
	}
	it.descs[desc.key] = desc
	return desc, true, nil
}

// Len returns the number of distinct placements interned so far.
func (it *Interner) Len() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.descs)
}
