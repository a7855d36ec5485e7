// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package resource provides the frozen per-cluster resource snapshot
// consulted during placement resolution: machine and device counts,
// memory reservations, thread-pool sizing, and feature toggles. A
// snapshot is constructed once at session bootstrap and read-only
// thereafter; concurrent readers need no synchronization.
package resource

import (
	"fmt"
	"os"
	"sort"
)

const mb = 1 << 20

// Config carries the raw resource configuration a Desc is frozen from.
// Memory reservations are configured in megabytes; Desc accessors
// convert them to bytes. Malformed configurations are expected to be
// rejected by the caller before construction; Desc does not validate.
type Config struct {
	// MachineNum is the number of physical nodes in the cluster.
	MachineNum int
	// CPUDeviceNum and GPUDeviceNum are the per-machine device counts.
	CPUDeviceNum int
	GPUDeviceNum int
	// CommNetWorkerNum sizes the communication-network worker pool.
	CommNetWorkerNum int
	// MaxModelSaveWorkerNum bounds concurrent model-save workers.
	MaxModelSaveWorkerNum int
	// ReservedHostMemMB and ReservedDeviceMemMB reserve memory, in
	// megabytes, on the host and on each accelerator device.
	ReservedHostMemMB   int64
	ReservedDeviceMemMB int64
	// ComputeThreadPoolSize sizes the compute thread pool; zero means
	// one thread per CPU device.
	ComputeThreadPoolSize int
	// ThreadLocalMessageQueue enables per-thread message queues.
	ThreadLocalMessageQueue bool
	// ThreadLocalCache enables per-thread caches of at most
	// ThreadLocalCacheMaxSize entries.
	ThreadLocalCache        bool
	ThreadLocalCacheMaxSize int
	// DebugMode, DryRun and TensorFloat32 are feature toggles read by
	// the session and by kernel dispatch.
	DebugMode     bool
	DryRun        bool
	TensorFloat32 bool
}

// Desc is the frozen view over a Config. It is constructed once at
// bootstrap, published process-wide by the session, and read-only from
// then on. The two Set methods exist only for early bootstrap, before
// the snapshot is published; this is a documented discipline, not
// something the type enforces.
type Desc struct {
	config          Config
	numProcsPerNode int64
	processRanks    []int64
}

// New freezes config into a snapshot. The participating process-rank
// set is computed here, once, from the machine count and the number of
// processes per node; it is deterministic for a given configuration.
func New(config Config, numProcsPerNode int64) *Desc {
	d := &Desc{config: config, numProcsPerNode: numProcsPerNode}
	d.computeProcessRanks()
	return d
}

func (d *Desc) computeProcessRanks() {
	d.processRanks = d.processRanks[:0]
	for m := int64(0); m < int64(d.config.MachineNum); m++ {
		for p := int64(0); p < d.numProcsPerNode; p++ {
			d.processRanks = append(d.processRanks, m*d.numProcsPerNode+p)
		}
	}
}

// ProcessRanks returns the sorted set of participating process ranks.
// Callers must not modify the returned slice.
func (d *Desc) ProcessRanks() []int64 {
	return d.processRanks
}

// HasRank tells whether rank participates in the cluster.
func (d *Desc) HasRank(rank int64) bool {
	i := sort.Search(len(d.processRanks), func(i int) bool { return d.processRanks[i] >= rank })
	return i < len(d.processRanks) && d.processRanks[i] == rank
}

// MachineNum returns the number of physical nodes.
func (d *Desc) MachineNum() int { return d.config.MachineNum }

// CPUDeviceNum returns the per-machine CPU device count.
func (d *Desc) CPUDeviceNum() int { return d.config.CPUDeviceNum }

// GPUDeviceNum returns the per-machine accelerator device count.
func (d *Desc) GPUDeviceNum() int { return d.config.GPUDeviceNum }

// MemZoneNum returns the number of memory zones on each machine: one
// per accelerator device plus the host zone.
func (d *Desc) MemZoneNum() int { return d.config.GPUDeviceNum + 1 }

// CommNetWorkerNum returns the communication-network worker pool size.
func (d *Desc) CommNetWorkerNum() int { return d.config.CommNetWorkerNum }

// MaxModelSaveWorkerNum returns the model-save worker bound.
func (d *Desc) MaxModelSaveWorkerNum() int { return d.config.MaxModelSaveWorkerNum }

// ReservedHostMemBytes returns the host memory reservation in bytes.
func (d *Desc) ReservedHostMemBytes() int64 { return d.config.ReservedHostMemMB * mb }

// ReservedDeviceMemBytes returns the per-device memory reservation in
// bytes.
func (d *Desc) ReservedDeviceMemBytes() int64 { return d.config.ReservedDeviceMemMB * mb }

// ComputeThreadPoolSize returns the compute thread pool size,
// defaulting to one thread per CPU device.
func (d *Desc) ComputeThreadPoolSize() int {
	if d.config.ComputeThreadPoolSize > 0 {
		return d.config.ComputeThreadPoolSize
	}
	return d.config.CPUDeviceNum
}

// ThreadLocalMessageQueue tells whether per-thread message queues are
// enabled.
func (d *Desc) ThreadLocalMessageQueue() bool { return d.config.ThreadLocalMessageQueue }

// ThreadLocalCache tells whether per-thread caching is enabled.
func (d *Desc) ThreadLocalCache() bool { return d.config.ThreadLocalCache }

// ThreadLocalCacheMaxSize returns the per-thread cache bound.
func (d *Desc) ThreadLocalCacheMaxSize() int { return d.config.ThreadLocalCacheMaxSize }

// DebugMode tells whether debug mode is on, either by configuration or
// through the BIGPLACE_DEBUG environment variable.
func (d *Desc) DebugMode() bool {
	return d.config.DebugMode || os.Getenv("BIGPLACE_DEBUG") != ""
}

// DryRun tells whether dry-run mode is on, either by configuration or
// through the BIGPLACE_DRY_RUN environment variable.
func (d *Desc) DryRun() bool {
	return d.config.DryRun || os.Getenv("BIGPLACE_DRY_RUN") != ""
}

// TensorFloat32 tells whether reduced-precision TF32 compute is
// permitted.
func (d *Desc) TensorFloat32() bool { return d.config.TensorFloat32 }

// SetMachineNum overrides the machine count and recomputes the
// process-rank set. Bootstrap only: it must not be called after the
// snapshot is published.
func (d *Desc) SetMachineNum(n int) {
	d.config.MachineNum = n
	d.computeProcessRanks()
}

// SetCPUDeviceNum overrides the per-machine CPU device count.
// Bootstrap only: it must not be called after the snapshot is
// published.
func (d *Desc) SetCPUDeviceNum(n int) {
	d.config.CPUDeviceNum = n
}

func (d *Desc) String() string {
	return fmt.Sprintf("%d machines, %d cpu + %d gpu devices/machine, %d ranks",
		d.config.MachineNum, d.config.CPUDeviceNum, d.config.GPUDeviceNum, len(d.processRanks))
}
