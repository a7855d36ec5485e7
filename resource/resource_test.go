// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package resource

import (
	"os"
	"reflect"
	"testing"
)

func TestProcessRanks(t *testing.T) {
	desc := New(Config{MachineNum: 2, CPUDeviceNum: 4}, 2)
	if got, want := desc.ProcessRanks(), []int64{0, 1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for _, rank := range []int64{0, 1, 2, 3} {
		if !desc.HasRank(rank) {
			t.Errorf("missing rank %d", rank)
		}
	}
	if desc.HasRank(4) || desc.HasRank(-1) {
		t.Error("phantom rank")
	}
}

func TestMemoryReservations(t *testing.T) {
	desc := New(Config{ReservedHostMemMB: 512, ReservedDeviceMemMB: 256}, 1)
	if got, want := desc.ReservedHostMemBytes(), int64(512*1048576); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := desc.ReservedDeviceMemBytes(), int64(256*1048576); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMemZoneNum(t *testing.T) {
	if got, want := New(Config{GPUDeviceNum: 8}, 1).MemZoneNum(), 9; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := New(Config{}, 1).MemZoneNum(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestComputeThreadPoolSize(t *testing.T) {
	if got, want := New(Config{CPUDeviceNum: 6}, 1).ComputeThreadPoolSize(), 6; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := New(Config{CPUDeviceNum: 6, ComputeThreadPoolSize: 2}, 1).ComputeThreadPoolSize(), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBootstrapSetters(t *testing.T) {
	desc := New(Config{MachineNum: 1, CPUDeviceNum: 1}, 2)
	desc.SetMachineNum(3)
	if got, want := desc.MachineNum(), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := desc.ProcessRanks(), []int64{0, 1, 2, 3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	desc.SetCPUDeviceNum(16)
	if got, want := desc.CPUDeviceNum(), 16; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDebugModeEnv(t *testing.T) {
	desc := New(Config{}, 1)
	if desc.DebugMode() {
		t.Error("debug mode on by default")
	}
	os.Setenv("BIGPLACE_DEBUG", "1")
	defer os.Unsetenv("BIGPLACE_DEBUG")
	if !desc.DebugMode() {
		t.Error("environment did not enable debug mode")
	}
}
