package main

import (
	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/gen"
)

type Setup struct{}

func (Setup) Build() *fluidgen.App {
	return fluidgen.NewApp()
}

func (Setup) Configure(b *gen.Builder) *gen.Builder {
	return b
}

func main() {}
