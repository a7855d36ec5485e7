// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import "github.com/spaolacci/murmur3"

// placementSeed distinguishes placement hashes from other murmur3
// users sharing a hash space.
const placementSeed = 0x9e02

// Hash returns a stable 32-bit hash of the placement, computed over
// its canonical key. Equal descriptions hash identically on every
// process, so the hash is safe to use for cross-process keying of
// collective-communication groups.
func (p *ParallelDesc) Hash() uint32 {
	return murmur3.Sum32WithSeed([]byte(p.key), placementSeed)
}
