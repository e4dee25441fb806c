// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/jamesyoung-15/SudoOpsCode/cmd/sudoopscode"

func main() {
	cmd.Execute()
}
