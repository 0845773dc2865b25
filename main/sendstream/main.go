package main

import (
	sendstream_cmd "github.com/btrfsgo/sendstream/cmd/sendstream"
)

func main() {
	sendstream_cmd.Execute()
}
