// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigplace/resource"
)

// Device tags understood by placement resolution. Every device named
// by one ParallelConf shares a single tag.
const (
	CPU = "cpu"
	GPU = "gpu"
)

// A ParallelConf requests a placement: the device kind and an ordered
// list of device-name tokens (see DeviceName for the token grammar).
// Token order does not affect the resolved placement; overlapping and
// duplicate ranges collapse.
type ParallelConf struct {
	DeviceTag   string
	DeviceNames []string
}

// A ParallelDesc is the resolved, validated form of a ParallelConf: the
// sorted set of participating machine ranks, the sorted device-id set
// on each, and the flattened enumeration of (machine, device) pairs
// that assigns each pair its parallel id. A ParallelDesc is immutable
// after construction; equivalent configurations resolved against the
// same topology produce equal descriptions with identical hashes, so
// callers may key collective-communication groups by them.
type ParallelDesc struct {
	deviceTag        string
	sortedMachineIDs []int64
	deviceIDs        map[int64][]int64
	parallelNum      int64

	// Flattened enumeration in (machine, device) sorted order;
	// index is the parallel id.
	pidMachines []int64
	pidDevices  []int64

	key  string
	body string
}

// NewParallelDesc resolves conf against the process topology and the
// resource snapshot. Resolution proceeds token by token: explicit-rank
// tokens take the calling process's own rank as their machine id; when
// several processes share a node, a non-explicit token's (machine,
// device) pair folds onto the process rank machine·ppn+device, so one
// textual configuration describes the same placement whether a node
// runs one process or many. Every resolved machine rank must fall in
// [0, world size) and every device index below the per-machine device
// count for the tag. There is no partial construction: the description
// is fully valid or the error names the first offending token.
func NewParallelDesc(pctx ProcessCtx, res *resource.Desc, conf ParallelConf) (*ParallelDesc, error) {
	if len(conf.DeviceNames) == 0 {
		return nil, errors.E(errors.Invalid, "malformed parallel conf: no device names")
	}
	tag := conf.DeviceTag
	parsed := make([]DeviceName, len(conf.DeviceNames))
	for i, token := range conf.DeviceNames {
		name, err := ParseDeviceName(token)
		if err != nil {
			return nil, err
		}
		if name.Tag != "" {
			switch {
			case tag == "":
				tag = name.Tag
			case name.Tag != tag:
				return nil, errors.E(errors.NotSupported,
					fmt.Sprintf("inconsistent device tag: token %q conflicts with %q", token, tag))
			}
		}
		parsed[i] = name
	}
	bound, err := deviceBound(res, tag)
	if err != nil {
		return nil, err
	}
	var (
		ppn  = pctx.NumProcsPerNode()
		sets = make(map[int64]map[int64]bool)
	)
	for i, name := range parsed {
		machine := name.MachineID
		if name.ExplicitRank {
			machine = pctx.Rank
		}
		for dev := name.DeviceLo; dev <= name.DeviceHi; dev++ {
			m, d := machine, dev
			if !name.ExplicitRank && ppn > 1 {
				m = machine*ppn + dev
			}
			if m < 0 || m >= pctx.WorldSize() {
				return nil, errors.E(errors.NotExist,
					fmt.Sprintf("device out of range: token %q: machine %d outside world of %d processes",
						conf.DeviceNames[i], m, pctx.WorldSize()))
			}
			if d >= int64(bound) {
				return nil, errors.E(errors.NotExist,
					fmt.Sprintf("device out of range: token %q: device %d exceeds %d %s device(s) per machine",
						conf.DeviceNames[i], d, bound, tag))
			}
			set := sets[m]
			if set == nil {
				set = make(map[int64]bool)
				sets[m] = set
			}
			set[d] = true
		}
	}
	desc := &ParallelDesc{
		deviceTag:        tag,
		sortedMachineIDs: make([]int64, 0, len(sets)),
		deviceIDs:        make(map[int64][]int64, len(sets)),
	}
	for m, set := range sets {
		desc.sortedMachineIDs = append(desc.sortedMachineIDs, m)
		ids := make([]int64, 0, len(set))
		for d := range set {
			ids = append(ids, d)
		}
		sortInt64s(ids)
		desc.deviceIDs[m] = ids
		desc.parallelNum += int64(len(ids))
	}
	sortInt64s(desc.sortedMachineIDs)
	desc.pidMachines = make([]int64, 0, desc.parallelNum)
	desc.pidDevices = make([]int64, 0, desc.parallelNum)
	for _, m := range desc.sortedMachineIDs {
		for _, d := range desc.deviceIDs[m] {
			desc.pidMachines = append(desc.pidMachines, m)
			desc.pidDevices = append(desc.pidDevices, d)
		}
	}
	desc.body = canonicalBody(desc.sortedMachineIDs, desc.deviceIDs)
	desc.key = desc.deviceTag + "|" + desc.body
	return desc, nil
}

// DeviceTag returns the device kind shared by every member device.
func (p *ParallelDesc) DeviceTag() string { return p.deviceTag }

// SortedMachineIDs returns the participating machine ranks in strictly
// increasing order. Callers must not modify the returned slice.
func (p *ParallelDesc) SortedMachineIDs() []int64 { return p.sortedMachineIDs }

// ParallelNum returns the total count of (machine, device) pairs.
func (p *ParallelDesc) ParallelNum() int64 { return p.parallelNum }

// DeviceIDs returns the sorted device indices participating on the
// given machine, or nil if the machine does not participate. Callers
// must not modify the returned slice.
func (p *ParallelDesc) DeviceIDs(machineID int64) []int64 { return p.deviceIDs[machineID] }

// ContainsMachine tells whether machineID participates.
func (p *ParallelDesc) ContainsMachine(machineID int64) bool {
	_, ok := p.deviceIDs[machineID]
	return ok
}

// Contains tells whether the (machine, device) pair participates.
func (p *ParallelDesc) Contains(machineID, deviceID int64) bool {
	ids := p.deviceIDs[machineID]
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= deviceID })
	return i < len(ids) && ids[i] == deviceID
}

// MachineIDForParallelID returns the machine rank of the id'th pair in
// the flattened (machine, device) enumeration.
func (p *ParallelDesc) MachineIDForParallelID(id int64) (int64, bool) {
	if id < 0 || id >= p.parallelNum {
		return 0, false
	}
	return p.pidMachines[id], true
}

// DeviceIDForParallelID returns the device index of the id'th pair in
// the flattened (machine, device) enumeration.
func (p *ParallelDesc) DeviceIDForParallelID(id int64) (int64, bool) {
	if id < 0 || id >= p.parallelNum {
		return 0, false
	}
	return p.pidDevices[id], true
}

// ParallelID returns the parallel id assigned to the (machine, device)
// pair, or false if the pair does not participate.
func (p *ParallelDesc) ParallelID(machineID, deviceID int64) (int64, bool) {
	for id, m := range p.pidMachines {
		if m == machineID && p.pidDevices[id] == deviceID {
			return int64(id), true
		}
	}
	return 0, false
}

// Equal tells whether q describes the same placement: same device tag
// and same per-machine device-id sets (and hence the same parallel
// num).
func (p *ParallelDesc) Equal(q *ParallelDesc) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.key == q.key
}

// EqualIgnoringDeviceTag tells whether q places the same (machine,
// device) pairs, regardless of device kind.
func (p *ParallelDesc) EqualIgnoringDeviceTag(q *ParallelDesc) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.body == q.body
}

// Key returns the canonical serialization of the placement: the device
// tag followed by each machine's device ranges in machine order, e.g.
// "cpu|0:0-3,1:0-3". Equal descriptions have equal keys.
func (p *ParallelDesc) Key() string { return p.key }

func (p *ParallelDesc) String() string { return p.key }

func canonicalBody(machines []int64, deviceIDs map[int64][]int64) string {
	var b strings.Builder
	for i, m := range machines {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d:%s", m, rangeString(deviceIDs[m]))
	}
	return b.String()
}

// rangeString renders sorted device ids as compact ranges, e.g.
// [0 1 2 5] as "0-2+5".
func rangeString(ids []int64) string {
	var b strings.Builder
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if i > 0 {
			b.WriteByte('+')
		}
		if i == j {
			fmt.Fprintf(&b, "%d", ids[i])
		} else {
			fmt.Fprintf(&b, "%d-%d", ids[i], ids[j])
		}
		i = j + 1
	}
	return b.String()
}

func deviceBound(res *resource.Desc, tag string) (int, error) {
	switch tag {
	case CPU:
		return res.CPUDeviceNum(), nil
	case GPU:
		return res.GPUDeviceNum(), nil
	case "":
		return 0, errors.E(errors.NotSupported, "inconsistent device tag: no device tag given")
	default:
		return 0, errors.E(errors.NotSupported, fmt.Sprintf("inconsistent device tag: unknown device tag %q", tag))
	}
}

func sortInt64s(x []int64) {
	sort.Slice(x, func(i, j int) bool { return x[i] < x[j] })
}
