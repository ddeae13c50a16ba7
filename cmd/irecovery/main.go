package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/moffa90/go-irecovery/internal/cmd"
	"github.com/moffa90/go-irecovery/internal/configpaths"
	"github.com/moffa90/go-irecovery/internal/log"
	"github.com/moffa90/go-irecovery/usb"
	"github.com/moffa90/go-irecovery/usb/libusb"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name("irecovery"),
		kong.Description("Talk to Apple devices in recovery mode"),
		kong.UsageOnError(),
		// Flags and env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeFiles, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closeFiles {
			_ = c.Close()
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := libusb.DefaultHost()
	host.SetDebug(cli.Device.USBDebug)
	defer func() { _ = host.Close() }()

	ctx.Bind(logger)
	ctx.Bind(&cmd.Env{
		Ctx:    sigCtx,
		Opener: usb.Opener(host),
		Device: cli.Device,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	err = ctx.Run()
	if err != nil {
		logger.Error("command failed", "command", ctx.Command(), "error", err)
	}
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("IRECOVERY_CONFIG")
}
