// Copyright 2020 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bigplace

import "github.com/grailbio/base/errors"

// Error templates distinguishing the failure modes of placement
// construction and session queries. Use errors.Match to test a
// returned error against a template:
//
//	if errors.Match(bigplace.ErrOutOfRangeDevice, err) { ... }
//
// Errors are surfaced synchronously from construction and query calls
// and are never retried internally: each indicates a caller
// configuration mistake, not a transient condition.
var (
	// ErrMalformedDeviceName matches errors from unparsable
	// device-name tokens: non-numeric segments, inverted ranges,
	// 64-bit overflow.
	ErrMalformedDeviceName = errors.E(errors.Invalid)
	// ErrOutOfRangeDevice matches errors from machine ranks or device
	// indices that fall outside the configured topology bounds.
	ErrOutOfRangeDevice = errors.E(errors.NotExist)
	// ErrInconsistentDeviceTag matches errors from configurations
	// mixing device tags, or naming a tag no device kind answers to.
	ErrInconsistentDeviceTag = errors.E(errors.NotSupported)
	// ErrUnpublishedSession matches errors from querying a session
	// before Start has published it.
	ErrUnpublishedSession = errors.E(errors.Precondition)
)
