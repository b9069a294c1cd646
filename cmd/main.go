package main

import "github.com/dyike/StockAnalyzer/internal/cli"

func main() {
	cli.Run()
}
