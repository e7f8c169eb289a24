package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tanpawarit/salesops-assistant/cmd"
	_ "github.com/tanpawarit/salesops-assistant/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
