// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mrpackify/mrpackify/cmd/mrpackify"

func main() {
	cmd.Execute()
}
