// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"reflect"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bigmachine/testsystem"
	"github.com/grailbio/bigplace/resource"
)

// TestBigmachineTopology verifies that a bigmachine-backed session
// derives its control-address list from the started machines, one
// process per node with the driver at rank 0, and resolves placements
// against that topology.
func TestBigmachineTopology(t *testing.T) {
	const Nmach = 3
	system := testsystem.New()
	sess, shutdown, err := Start(
		Bigmachine(system, Nmach),
		Resources(resource.Config{CPUDeviceNum: 4}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown()
	if got, want := system.N(), Nmach; got != want {
		t.Errorf("got %v machines, want %v", got, want)
	}
	pctx, err := sess.Process()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := pctx.WorldSize(), int64(Nmach); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := pctx.Rank, int64(0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := pctx.NumProcsPerNode(), int64(1); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	seen := make(map[string]bool)
	for rank, addr := range pctx.CtrlAddrs {
		if addr == "" {
			t.Errorf("rank %d: empty control address", rank)
		}
		if seen[addr] {
			t.Errorf("rank %d: duplicate control address %s", rank, addr)
		}
		seen[addr] = true
	}
	res, err := sess.Resource()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := res.ProcessRanks(), []int64{0, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	desc, err := sess.Placement(ParallelConf{
		DeviceTag:   CPU,
		DeviceNames: []string{"0:0-3", "2:0-3"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := desc.ParallelNum(), int64(8); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := desc.SortedMachineIDs(), []int64{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	// Machine ranks beyond the started world stay out of range.
	_, err = sess.Placement(ParallelConf{DeviceTag: CPU, DeviceNames: []string{"3:0"}})
	if !errors.Match(ErrOutOfRangeDevice, err) {
		t.Errorf("error %v does not match ErrOutOfRangeDevice", err)
	}
}

// TestBigmachineShutdown verifies that a bigmachine-backed session
// tears down cleanly: shutdown disarms the machine watchers before
// stopping the machines.
func TestBigmachineShutdown(t *testing.T) {
	system := testsystem.New()
	sess, shutdown, err := Start(Bigmachine(system, 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Placement(ParallelConf{DeviceTag: CPU, DeviceNames: []string{"0:0", "1:0"}}); err != nil {
		t.Fatal(err)
	}
	shutdown()
}
