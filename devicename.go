// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// A DeviceName is a single parsed device-name token. Tokens name a
// contiguous range of device indices on one machine:
//
//	token        = ["@"] machine-id ":" device-range
//	device-range = index / index "-" index
//
// so that "0:0-3" names devices 0 through 3 on machine 0 and "0:2"
// names device 2 alone. A leading "@" marks the token explicit-rank:
// the machine field is then resolved to the issuing process's own rank
// instead of being read as a topology position, letting each process
// declare its local devices without knowing global machine numbering.
//
// A legacy three-segment form "machine-id:tag:device-range" carries a
// per-token device tag; it is accepted so that old placement strings
// keep parsing, and the tag must agree with the configuration's tag.
type DeviceName struct {
	// MachineID is the machine rank named by the token. When
	// ExplicitRank is set it is a placeholder to be replaced by the
	// issuing process's rank.
	MachineID int64
	// Tag is the device tag carried by a legacy three-segment token,
	// or empty.
	Tag string
	// DeviceLo and DeviceHi bound the inclusive device-index range.
	DeviceLo, DeviceHi int64
	// ExplicitRank indicates a leading "@".
	ExplicitRank bool
}

// ParseDeviceName parses a device-name token. It is a pure function:
// it consults no configuration and performs no I/O. Unparsable tokens,
// inverted ranges and indices that overflow int64 fail with a
// malformed-device-name error matching ErrMalformedDeviceName.
func ParseDeviceName(token string) (DeviceName, error) {
	var name DeviceName
	s := token
	if strings.HasPrefix(s, "@") {
		name.ExplicitRank = true
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	var machine, devices string
	switch len(parts) {
	case 2:
		machine, devices = parts[0], parts[1]
	case 3:
		machine, name.Tag, devices = parts[0], parts[1], parts[2]
		if name.Tag == "" {
			return DeviceName{}, errMalformed(token, "empty device tag")
		}
	default:
		return DeviceName{}, errMalformed(token, "want machine:device-range")
	}
	var err error
	name.MachineID, err = parseIndex(machine)
	if err != nil {
		return DeviceName{}, errMalformed(token, fmt.Sprintf("machine %q: %v", machine, err))
	}
	lo, hi := devices, devices
	if i := strings.Index(devices, "-"); i >= 0 {
		lo, hi = devices[:i], devices[i+1:]
	}
	name.DeviceLo, err = parseIndex(lo)
	if err != nil {
		return DeviceName{}, errMalformed(token, fmt.Sprintf("device %q: %v", lo, err))
	}
	name.DeviceHi, err = parseIndex(hi)
	if err != nil {
		return DeviceName{}, errMalformed(token, fmt.Sprintf("device %q: %v", hi, err))
	}
	if name.DeviceLo > name.DeviceHi {
		return DeviceName{}, errMalformed(token, fmt.Sprintf("inverted device range %d-%d", name.DeviceLo, name.DeviceHi))
	}
	return name, nil
}

// String renders the canonical token for the name, so that
// ParseDeviceName(name.String()) reproduces name.
func (d DeviceName) String() string {
	var b strings.Builder
	if d.ExplicitRank {
		b.WriteByte('@')
	}
	fmt.Fprintf(&b, "%d:", d.MachineID)
	if d.Tag != "" {
		b.WriteString(d.Tag)
		b.WriteByte(':')
	}
	if d.DeviceLo == d.DeviceHi {
		fmt.Fprintf(&b, "%d", d.DeviceLo)
	} else {
		fmt.Fprintf(&b, "%d-%d", d.DeviceLo, d.DeviceHi)
	}
	return b.String()
}

// NumDevices returns the number of device indices the token names.
func (d DeviceName) NumDevices() int64 {
	return d.DeviceHi - d.DeviceLo + 1
}

func parseIndex(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative index %d", v)
	}
	return v, nil
}

func errMalformed(token, detail string) error {
	return errors.E(errors.Invalid, fmt.Sprintf("malformed device name %q: %s", token, detail))
}
