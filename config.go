// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import (
	"strings"

	"github.com/grailbio/base/config"
	"github.com/grailbio/bigmachine"
	"github.com/grailbio/bigplace/resource"
)

func init() {
	config.Register("bigplace", func(inst *config.Constructor) {
		var (
			cfg         resource.Config
			hostMemMB   int
			deviceMemMB int
			rank        int
			nodeSize    int
			ctrlAddrs   string
			system      bigmachine.System
		)
		inst.IntVar(&cfg.MachineNum, "machines", 1, "number of physical nodes in the cluster")
		inst.IntVar(&cfg.CPUDeviceNum, "cpu-devices", 1, "CPU devices per machine")
		inst.IntVar(&cfg.GPUDeviceNum, "gpu-devices", 0, "accelerator devices per machine")
		inst.IntVar(&cfg.CommNetWorkerNum, "commnet-workers", 4, "communication-network worker pool size")
		inst.IntVar(&cfg.MaxModelSaveWorkerNum, "mdsave-workers", 64, "maximum concurrent model-save workers")
		inst.IntVar(&hostMemMB, "reserved-host-mem-mb", 0, "host memory reservation in megabytes")
		inst.IntVar(&deviceMemMB, "reserved-device-mem-mb", 0, "per-device memory reservation in megabytes")
		inst.IntVar(&cfg.ComputeThreadPoolSize, "compute-threads", 0, "compute thread pool size; 0 means one per CPU device")
		inst.BoolVar(&cfg.DebugMode, "debug", false, "log placement and topology decisions")
		inst.BoolVar(&cfg.DryRun, "dry-run", false, "validate configurations without executing anything")
		inst.BoolVar(&cfg.TensorFloat32, "tf32", false, "permit reduced-precision TF32 compute")
		inst.IntVar(&rank, "rank", 0, "this process's rank")
		inst.IntVar(&nodeSize, "nodes", 1, "number of physical nodes; the world size must be a multiple")
		inst.StringVar(&ctrlAddrs, "ctrl-addrs", "localhost:0", "comma-separated control addresses, one per process, indexed by rank")
		inst.InstanceVar(&system, "system", "", "optional bigmachine system whose machines supply the cluster topology")
		inst.Doc = "bigplace configures the placement session for this process"
		inst.New = func() (interface{}, error) {
			cfg.ReservedHostMemMB = int64(hostMemMB)
			cfg.ReservedDeviceMemMB = int64(deviceMemMB)
			options := []Option{Resources(cfg)}
			if system != nil {
				options = append(options, Bigmachine(system, nodeSize))
			} else {
				options = append(options, Cluster(int64(rank), int64(nodeSize), strings.Split(ctrlAddrs, ",")...))
			}
			// A config-created session lives for the whole process;
			// its resources are released at process exit.
			sess, _, err := Start(options...)
			return sess, err
		}
	})
}
