// Command rpcping issues one generic call through the async engine and
// prints the decoded result.
//
//	rpcping call --addr 127.0.0.1:9090 --method add --arg 1:i32=3 --arg 2:i32=4
//	rpcping call --service Calculator --method ping --oneway
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
