package main

import (
	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/gen"
)

func build() *gen.Builder {
	return gen.FromApp(fluidgen.NewApp())
}

func configure(b *gen.Builder) *gen.Builder {
	return b.WithOverrides("target=production")
}

func main() {
	_ = configure(build())
}
