package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "insighteye:", err)
		}
		os.Exit(1)
	}
}
