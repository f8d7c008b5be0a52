// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Dara Heaphy
//
// Graphite - Pylon reactor link toolkit
//
// Supervisory tooling for the reactor/agent serial link: the reactor-side
// safety control loop, the operator console, the network bridge, and
// protocol monitoring.

package main

import (
	"os"

	"github.com/DaraHeaphy/graphite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
