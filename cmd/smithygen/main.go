// smithygen resolves a Smithy model into a Rust crate layout and writes the
// generated modules.
//
//	smithygen generate --model weather.json --out ./weather
//	smithygen symbols --model weather.json --flavor server
//	smithygen decorators --flavor sdk
package main

import (
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		zap.L().Error("smithygen failed", zap.Error(err))
		os.Exit(1)
	}
}
