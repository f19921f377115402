// casting-app is an interactive casting client.
//
// It discovers players on the local network, connects to one, selects the
// content app endpoint of the target vendor and drives it from a shell.
//
// Usage:
//
//	casting-app [options]
//
// Options:
//
//	-config      YAML configuration file (default: built-in)
//	-vendor      vendor ID of the content app to select (default: 0xFFF1)
//	-storage     player cache file (default: in-memory)
//	-player      host:port of a player to connect to on start
//	-log-level   trace|debug|info|warn|error (default: info)
//
// Example:
//
//	casting-app -storage players.db -player 192.168.1.20:5540
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/backkem/matter-tv/examples/castingapp"
	"github.com/backkem/matter-tv/examples/common"
)

func main() {
	opts := common.ParseFlags()

	file, err := opts.LoadCastingApp()
	if err != nil {
		common.Fatalf("Failed to load configuration: %v", err)
	}

	lf := common.NewLoggerFactory(file.LogLevel, os.Stderr)
	ctrl, err := castingapp.New(castingapp.Options{
		File:          file,
		LoggerFactory: lf,
	})
	if err != nil {
		common.Fatalf("Failed to create casting client: %v", err)
	}
	defer ctrl.Close()

	storage := file.StoragePath
	if storage == "" {
		storage = "(memory)"
	}
	common.Banner(os.Stdout, "Casting App", [][2]string{
		{"Target vendor", fmt.Sprintf("0x%04X", file.TargetVendor)},
		{"Player cache", storage},
		{"Browse timeout", file.BrowseTimeout.String()},
	})

	ctx, cancel := common.SignalContext()
	defer cancel()

	if file.Player != "" {
		if err := connect(ctx, ctrl, file.Player); err != nil {
			common.Fatalf("Failed to connect to %s: %v", file.Player, err)
		}
	}

	shell, err := common.NewShell("cast> ", ctrl.Commands(ctx))
	if err != nil {
		common.Fatalf("Failed to start shell: %v", err)
	}
	shell.Run(ctx)
}

func connect(ctx context.Context, ctrl *castingapp.Controller, addr string) error {
	p, err := castingapp.DirectPlayer(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ctrl.Connect(ctx, p); err != nil {
		return err
	}
	_, ep, _ := ctrl.Session()
	fmt.Printf("Connected to %s, using %s\n", addr, ep)
	return nil
}
