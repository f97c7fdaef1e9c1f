// Command postgate is the operator CLI for the gateway: it registers
// databases and mints access tokens against the metadata store.
package main

import "postgate/cmd/postgate/cmd"

func main() {
	cmd.Execute()
}
