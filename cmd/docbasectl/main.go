package main

import (
	"os"

	"github.com/gogotex/docbase/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
