package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"basegraph.app/airbrake-proxy/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
