package main

import "github.com/broady/fluidgen/gen"

func Configure(b *gen.Builder) *gen.Builder {
	return b.WithOverrides("strategy=co-locate")
}
