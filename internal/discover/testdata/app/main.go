package main

import "github.com/broady/fluidgen"

func setupApp() *fluidgen.App {
	return fluidgen.NewApp()
}

// Not an export: takes a parameter.
func namedApp(name string) *fluidgen.App {
	return fluidgen.NewApp()
}

func main() {
	_ = setupApp()
	_ = namedApp("x")
}
