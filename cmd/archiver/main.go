package main

import "github.com/vietddude/weavearchive/internal/cli"

func main() {
	cli.Execute()
}
