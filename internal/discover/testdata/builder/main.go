package main

import (
	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/gen"
)

func SetupApp() *fluidgen.App {
	return fluidgen.NewApp()
}

func Gen() *gen.Builder {
	return gen.FromApp(SetupApp())
}

func main() {}
