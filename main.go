package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/lmsportal/internal/lmscli"
)

func main() {
	if err := lmscli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, lmscli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "usage: lmsportal setup [--api-base-url URL] [--force]")
			fmt.Fprintln(os.Stderr, "       lmsportal run web|dev-api|all")
			fmt.Fprintln(os.Stderr, "       lmsportal help")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
