// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Command pccctl is a CLI inspector for a running pccd. It queries pccd's
// Prometheus endpoint directly rather than an RPC service, since pccd
// exposes no RPC surface of its own.
package main

import "github.com/heistp/pcc/cmd/pccctl/commands"

func main() {
	commands.Execute()
}
