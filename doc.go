// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bigplace implements placement bookkeeping for distributed
// computation: it resolves textual device-name configurations into
// validated, canonical descriptions of which machine ranks and device
// indices participate in an operation. A placement is requested as a
// ParallelConf (a device tag plus device-name tokens such as "0:0-3"),
// resolved against the cluster's process context and resource snapshot,
// and returned as an immutable ParallelDesc whose canonical form is
// shared across all equivalent requests through a session's interner.
//
// Placement resolution is deterministic across processes: two processes
// that resolve the same configuration against the same topology arrive
// at the same sorted machine ranks, device-id sets, and hash, which
// lets callers key collective-communication groups and scheduling
// decisions by placement identity.
package bigplace
