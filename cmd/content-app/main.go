// content-app is a simulated TV that hosts content apps for casting.
//
// Each app from the configuration is an endpoint with the Application
// Basic, Application Launcher, Content Launcher, Media Playback, Target
// Navigator and Account Login clusters. The player is advertised over
// DNS-SD so casting clients can find it.
//
// Usage:
//
//	content-app [options]
//
// Options:
//
//	-config      YAML configuration file (default: built-in)
//	-port        link port (default: 5540)
//	-name        device name (default: "Matter TV")
//	-vendor      player vendor ID (default: 0xFFF1)
//	-product     player product ID (default: 0x8001)
//	-log-level   trace|debug|info|warn|error (default: info)
//	-interactive start the shell (default: true)
//
// Example:
//
//	content-app -config tv.yaml -log-level debug
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/backkem/matter-tv/examples/common"
	"github.com/backkem/matter-tv/examples/videoplayer"
)

func main() {
	opts := common.ParseFlags()

	file, err := opts.LoadContentApp()
	if err != nil {
		common.Fatalf("Failed to load configuration: %v", err)
	}

	lf := common.NewLoggerFactory(file.LogLevel, os.Stderr)
	device, err := videoplayer.NewDevice(videoplayer.Options{
		File:          file,
		LoggerFactory: lf,
	})
	if err != nil {
		common.Fatalf("Failed to create player: %v", err)
	}
	defer device.Close()

	if err := device.Start(); err != nil {
		common.Fatalf("Failed to start player: %v", err)
	}

	lines := [][2]string{
		{"Device", file.DeviceName},
		{"Port", strconv.Itoa(file.Port)},
		{"Vendor ID", fmt.Sprintf("0x%04X", file.VendorID)},
		{"Product ID", fmt.Sprintf("0x%04X", file.ProductID)},
	}
	if name := device.InstanceName(); name != "" {
		lines = append(lines, [2]string{"Instance", name})
	}
	for _, a := range device.Apps {
		cfg := a.Config()
		lines = append(lines, [2]string{
			fmt.Sprintf("Endpoint %d", a.Endpoint()),
			fmt.Sprintf("%s (%s)", cfg.ApplicationName, cfg.ApplicationID),
		})
	}
	common.Banner(os.Stdout, "Content App Ready", lines)

	ctx, cancel := common.SignalContext()
	defer cancel()

	if !opts.Interactive {
		fmt.Println("Press Ctrl+C to stop...")
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		return
	}

	shell, err := common.NewShell("tv> ", device.Commands())
	if err != nil {
		common.Fatalf("Failed to start shell: %v", err)
	}
	shell.Run(ctx)
}
