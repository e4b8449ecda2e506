package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wyzesense/dongled/internal/events"
	"github.com/wyzesense/dongled/internal/session"
)

var (
	flagMonitorOutput string
	flagMonitorAsync  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream live sensor events as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		emitter, err := createEmitter(flagMonitorOutput, flagMonitorAsync)
		if err != nil {
			return fmt.Errorf("open events output: %w", err)
		}
		defer emitter.Close()

		onEvent := func(h *session.Handle, env events.Envelope) {
			emitter.Emit(env.Type, env.Data)
		}

		h, err := openSession(onEvent)
		if err != nil {
			return fmt.Errorf("open dongle: %w", err)
		}
		defer h.Stop()

		logger.Info("monitoring %s (dongle %s, firmware %s)", devicePath(), h.DongleMAC(), h.DongleVersion())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&flagMonitorOutput, "output", "stdout", "write JSON Line events to: stdout, stderr, or a file path")
	monitorCmd.Flags().BoolVar(&flagMonitorAsync, "async", false, "buffer event writes off the receive path, dropping events if the sink stalls")
}

// createEmitter creates an Emitter based on the --output flag value. With
// async set, writes go through a buffered background goroutine so a stalled
// sink cannot block the dongle's receive loop during an alarm burst.
func createEmitter(output string, async bool) (events.Emitter, error) {
	switch output {
	case "", "none":
		return events.NopEmitter{}, nil
	case "stdout":
		return newLineWriter(os.Stdout, async), nil
	case "stderr":
		return newLineWriter(os.Stderr, async), nil
	default:
		flags := os.O_WRONLY | os.O_APPEND
		if _, err := os.Stat(output); os.IsNotExist(err) {
			flags |= os.O_CREATE
		}
		f, err := os.OpenFile(output, flags, 0644)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", output, err)
		}
		return newLineWriter(f, async), nil
	}
}

func newLineWriter(w io.Writer, async bool) events.Emitter {
	if async {
		return events.NewAsyncJSONLineWriter(w)
	}
	return events.NewJSONLineWriter(w)
}
