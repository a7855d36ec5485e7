// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/must"
	"github.com/grailbio/bigplace"
	"github.com/grailbio/bigplace/placeconfig"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Bigplace is a tool for inspecting placement configurations.

Usage:

	bigplace <command> [arguments]

The commands are:

	check    resolve device-name tokens against the configured topology
	ranks    print the configured process-rank set
`)
	os.Exit(2)
}

func main() {
	log.AddFlags()
	log.SetFlags(0)
	log.SetPrefix("bigplace: ")
	must.Func = log.Fatal
	flag.Usage = usage
	sess, shutdown := placeconfig.Parse()
	defer shutdown()
	if flag.NArg() == 0 {
		flag.Usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "check":
		check(sess, args)
	case "ranks":
		ranks(sess)
	default:
		flag.Usage()
	}
}

func check(sess *bigplace.Session, args []string) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	tag := flags.String("tag", "", "device tag for the placement; empty takes the tokens' tag or cpu")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bigplace check [-tag cpu|gpu] token...\n")
		flags.PrintDefaults()
		os.Exit(2)
	}
	must.Nil(flags.Parse(args))
	if flags.NArg() == 0 {
		log.Fatal("check: no device names given")
	}
	conf := bigplace.ParallelConf{DeviceTag: *tag, DeviceNames: flags.Args()}
	if conf.DeviceTag == "" && !tagged(conf.DeviceNames) {
		conf.DeviceTag = bigplace.CPU
	}
	desc, err := sess.Placement(conf)
	must.Nil(err)
	fmt.Printf("%s: %d device(s) on %d machine(s)\n",
		desc.DeviceTag(), desc.ParallelNum(), len(desc.SortedMachineIDs()))
	for _, m := range desc.SortedMachineIDs() {
		fmt.Printf("\tmachine %d: devices %v\n", m, desc.DeviceIDs(m))
	}
	fmt.Printf("key %s hash %08x\n", desc.Key(), desc.Hash())
}

func ranks(sess *bigplace.Session) {
	res, err := sess.Resource()
	must.Nil(err)
	for _, rank := range res.ProcessRanks() {
		fmt.Println(rank)
	}
}

// tagged tells whether any token carries its own device tag, in which
// case check leaves the conf tag empty and lets resolution adopt it.
func tagged(tokens []string) bool {
	for _, token := range tokens {
		if name, err := bigplace.ParseDeviceName(token); err == nil && name.Tag != "" {
			return true
		}
	}
	return false
}
