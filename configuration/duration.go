// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"time"
)

// Duration - parse a Go duration string such as "90s" or "1h30m",
// an empty string gives the fallback
func Duration(name string, value string, fallback time.Duration) (time.Duration, error) {
	if "" == value {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if nil != err {
		return 0, fmt.Errorf("%s: %q is not a valid duration: %s", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: %q must be positive", name, value)
	}
	return d, nil
}
