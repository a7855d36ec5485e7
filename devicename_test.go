// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/base/errors"
)

func TestParseDeviceName(t *testing.T) {
	for _, c := range []struct {
		token string
		want  DeviceName
	}{
		{"0:0-3", DeviceName{MachineID: 0, DeviceLo: 0, DeviceHi: 3}},
		{"2:4-7", DeviceName{MachineID: 2, DeviceLo: 4, DeviceHi: 7}},
		{"0:2", DeviceName{MachineID: 0, DeviceLo: 2, DeviceHi: 2}},
		{"@0:0-3", DeviceName{MachineID: 0, DeviceLo: 0, DeviceHi: 3, ExplicitRank: true}},
		{"@13:5", DeviceName{MachineID: 13, DeviceLo: 5, DeviceHi: 5, ExplicitRank: true}},
		{"1:gpu:0-1", DeviceName{MachineID: 1, Tag: "gpu", DeviceLo: 0, DeviceHi: 1}},
		{"9223372036854775807:0", DeviceName{MachineID: 1<<63 - 1, DeviceLo: 0, DeviceHi: 0}},
	} {
		got, err := ParseDeviceName(c.token)
		if err != nil {
			t.Errorf("%s: %v", c.token, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s: got %+v, want %+v", c.token, got, c.want)
		}
		if str := got.String(); str != c.token {
			t.Errorf("%s: round-tripped to %s", c.token, str)
		}
	}
}

func TestParseDeviceNameMalformed(t *testing.T) {
	for _, token := range []string{
		"",
		"@",
		"0",
		"x:0-3",
		"0:x-3",
		"0:0-x",
		"0:3-1",
		"0:",
		":0-3",
		"0:0-3-4",
		"0:gpu:",
		"0::0-3",
		"-1:0-3",
		"0:-1-3",
		"9223372036854775808:0",
		"0:0-9223372036854775808",
		"@@0:0-3",
	} {
		_, err := ParseDeviceName(token)
		if err == nil {
			t.Errorf("%q: expected error", token)
			continue
		}
		if !errors.Match(ErrMalformedDeviceName, err) {
			t.Errorf("%q: error %v does not match ErrMalformedDeviceName", token, err)
		}
	}
}

func TestDeviceNameNumDevices(t *testing.T) {
	name, err := ParseDeviceName("0:2-6")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := name.NumDevices(), int64(5); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestDeviceNameRoundTrip verifies that printing and reparsing is the
// identity over valid device names.
func TestDeviceNameRoundTrip(t *testing.T) {
	const N = 1000
	fz := fuzz.New()
	tags := []string{"", "cpu", "gpu"}
	for i := 0; i < N; i++ {
		var (
			name DeviceName
			pick uint8
		)
		fz.Fuzz(&name.MachineID)
		fz.Fuzz(&name.DeviceLo)
		fz.Fuzz(&name.DeviceHi)
		fz.Fuzz(&name.ExplicitRank)
		fz.Fuzz(&pick)
		name.MachineID &= 1<<63 - 1
		name.DeviceLo &= 1<<63 - 1
		name.DeviceHi &= 1<<63 - 1
		if name.DeviceLo > name.DeviceHi {
			name.DeviceLo, name.DeviceHi = name.DeviceHi, name.DeviceLo
		}
		name.Tag = tags[int(pick)%len(tags)]
		parsed, err := ParseDeviceName(name.String())
		if err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		if parsed != name {
			t.Fatalf("got %+v, want %+v", parsed, name)
		}
	}
}

// TestParseDeviceNameTotal verifies that parsing arbitrary strings
// either fails cleanly or produces a value that round-trips.
func TestParseDeviceNameTotal(t *testing.T) {
	const N = 2000
	fz := fuzz.New()
	for i := 0; i < N; i++ {
		var token string
		fz.Fuzz(&token)
		name, err := ParseDeviceName(token)
		if err != nil {
			continue
		}
		reparsed, err := ParseDeviceName(name.String())
		if err != nil {
			t.Fatalf("%q: canonical form %s failed to reparse: %v", token, name, err)
		}
		if reparsed != name {
			t.Fatalf("%q: got %+v, want %+v", token, reparsed, name)
		}
	}
}
