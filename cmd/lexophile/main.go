package main

import "github.com/vietddude/lexophile/internal/cli"

func main() {
	cli.Execute()
}
