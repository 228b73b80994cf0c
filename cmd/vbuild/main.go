package main

import "github.com/goplus/vbuild/cmd/vbuild/internal"

func main() {
	internal.Execute()
}
