// CLAUDE:SUMMARY CLI entry point for footalk: engine daemon, one-shot render, settings control surface.
// Command footalk rewrites page text with reversible, leveled script
// substitutions.
//
// Usage:
//
//	domwatch -url https://example.com | footalk serve   # live page: envelopes in, patches out
//	footalk render page.html --language ru --level 2     # one-shot transform
//	footalk render --url https://example.com -f markdown # via Chrome
//	footalk set level 2                                  # persist and notify the engine
//	footalk languages
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
