package main

import (
	"fmt"

	"github.com/openkenya/hazina/internal/common"
)

func printVersion() {
	fmt.Printf("Hazina version %s\n", common.GetFullVersion())
}
