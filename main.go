// Command dhtfs mounts a tag-based virtual filesystem over FUSE.
package main

import "github.com/santileortiz/dhtfs/cmd"

func main() {
	cmd.Execute()
}
