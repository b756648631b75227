// The testservice binary is a small server honouring the contract the
// harness supervises: it is launched as `testservice --verbose --config
// <file>`, prints a line ending in its listen address once bound, serves the
// functional-test header contract, and exits cleanly on SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-yaml"
)

const serverHeader = "remora/func-tests"

type cli struct {
	Verbose bool   `help:"Print a startup line once the listener is bound."`
	Config  string `required:"" type:"existingfile" help:"Path to the YAML config file."`
}

type config struct {
	Listen       string `yaml:"listen"`
	DebugRouting bool   `yaml:"debug_routing"`
}

func main() {
	c := &cli{}
	kong.Parse(c)

	if err := run(c); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli) error {
	raw, err := os.ReadFile(c.Config)
	if err != nil {
		return err
	}
	cfg := config{}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Listen == "" {
		return errors.New("config: listen address not set")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Header("Server", serverHeader)
		if cfg.DebugRouting && c.FullPath() != "" {
			c.Header("X-Route", c.FullPath())
		}
		c.Next()
	})
	r.Any("/", func(c *gin.Context) {
		c.String(http.StatusOK, "hello")
	})
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", cfg.Listen, err)
	}
	if c.Verbose {
		fmt.Printf("Listening at %s\n", l.Addr())
	}

	srv := &http.Server{Handler: r}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(l)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
