// Command inspect classifies local produce photos and writes a CSV report.
package main

import (
	"os"

	"go-produce-inspector/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.WithError(err).Error("inspect failed")
		os.Exit(1)
	}
}
