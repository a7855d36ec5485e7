// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package placeconfig creates a bigplace session from a shared
// configuration profile, so that a fleet of processes can agree on
// one cluster topology and resource snapshot by distributing a single
// file. Placeconfig uses the configuration mechanism in package
// github.com/grailbio/base/config, and reads a default profile from
// $HOME/.bigplace/config; per-process values (notably the rank) are
// overridden on the command line through the flags the configuration
// mechanism registers.
package placeconfig

import (
	"flag"
	"os"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/must"

	// Used to provide ec2system.System bigmachines.
	_ "github.com/grailbio/bigmachine/ec2system"
	"github.com/grailbio/bigplace"
)

// Path determines the location of the bigplace profile read by Parse.
var Path = os.ExpandEnv("$HOME/.bigplace/config")

// Parse registers configuration flags and calls flag.Parse. It reads
// bigplace configuration from Path defined in this package. Parse
// returns the session as configured by the configuration and any
// flags provided. Parse panics if session creation fails.
//
// A profile-created session lives for the whole process, and any
// machines its configuration booted are released at process exit; the
// returned shutdown function exists so call sites read the same as
// ones that create sessions with bigplace.Start, and is a no-op.
func Parse() (sess *bigplace.Session, shutdown func()) {
	config.RegisterFlags("", Path)
	flag.Parse()
	must.Nil(config.ProcessFlags())
	config.Must("bigplace", &sess)
	return sess, func() {}
}
