package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/spf13/cobra"

	"github.com/ihebkh25/TTS-Project/pkg/chatstream"
	"github.com/ihebkh25/TTS-Project/pkg/frames"
	"github.com/ihebkh25/TTS-Project/pkg/logging"
	"github.com/ihebkh25/TTS-Project/pkg/metrics"
	"github.com/ihebkh25/TTS-Project/pkg/observers"
	"github.com/ihebkh25/TTS-Project/pkg/protocol"
	"github.com/ihebkh25/TTS-Project/pkg/resilience"
	"github.com/ihebkh25/TTS-Project/pkg/session"
)

const version = "dev"

var (
	flagConfig          string
	flagEndpoint        string
	flagLanguage        string
	flagConversationID  string
	flagNewConversation bool
	flagAudioOut        string
	flagRetries         int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chatstream [message]",
	Short: "Stream a chat reply and its synthesized audio from the speech backend",
	Args:  cobra.MaximumNArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&flagEndpoint, "endpoint", "ws://localhost:8085", "backend WebSocket endpoint")
	rootCmd.Flags().StringVar(&flagLanguage, "language", "", "locale code, e.g. en_US")
	rootCmd.Flags().StringVar(&flagConversationID, "conversation-id", "", "pin an existing conversation")
	rootCmd.Flags().BoolVar(&flagNewConversation, "new-conversation", false, "mint a conversation id client-side")
	rootCmd.Flags().StringVar(&flagAudioOut, "audio-out", "", "write received audio bytes to this file")
	rootCmd.Flags().IntVar(&flagRetries, "retries", 0, "dial retries before giving up")
}

func run(cmd *cobra.Command, args []string) error {
	message := "Hello, how are you?"
	if len(args) == 1 {
		message = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagLanguage != "" {
		cfg.Language = flagLanguage
	}

	log := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(log)
	printBanner()

	obs, cleanup, err := buildObservers(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := chatstream.New(cfg,
		chatstream.WithLogger(log),
		chatstream.WithObserver(obs))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := protocol.Request{
		Message:        message,
		Language:       cfg.Language,
		ConversationID: flagConversationID,
	}
	if flagNewConversation {
		fmt.Printf("Conversation ID: %s\n", req.EnsureConversationID())
	}

	var st *chatstream.Stream
	dial := func() error {
		var err error
		st, err = client.StartSession(ctx, req)
		return err
	}
	if flagRetries > 0 {
		err = resilience.NewRetryPolicy(flagRetries, 500*time.Millisecond).Do(ctx, dial)
	} else {
		err = dial()
	}
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	var audioOut *os.File
	if flagAudioOut != "" {
		audioOut, err = os.Create(flagAudioOut)
		if err != nil {
			return fmt.Errorf("open audio output: %w", err)
		}
		defer audioOut.Close()
	}

	render(st, audioOut)
	return report(st.Snapshot())
}

func render(st *chatstream.Stream, audioOut *os.File) {
	for ev := range st.Events() {
		switch ev.Cause {
		case session.CauseStatus:
			fmt.Printf("\nStatus: %s", ev.Phase)
			if ev.Detail != "" {
				fmt.Printf(" - %s", ev.Detail)
			}
			fmt.Println()
		case session.CauseToken:
			fmt.Print(ev.Token)
		case session.CauseAudioChunk:
			if ev.Audio != nil {
				if audioOut != nil {
					_, _ = audioOut.Write(ev.Audio.RawPayload())
				}
				fmt.Printf("\nAudio chunk #%d (%d bytes, %d Hz)\n",
					ev.AudioChunks, ev.Audio.Size(), ev.Audio.SampleRate())
				frames.ReleaseAudioFrame(*ev.Audio)
			}
		}
	}
}

func report(snap session.Session) error {
	fmt.Printf("\n---\nState:          %s\n", snap.State)
	fmt.Printf("Duration:       %.2fs\n", snap.Elapsed(time.Now()).Seconds())
	fmt.Printf("Tokens:         %d\n", snap.Tokens)
	fmt.Printf("Audio chunks:   %d (%d bytes)\n", snap.AudioChunks, snap.AudioBytes)
	fmt.Printf("Text length:    %d characters\n", len(snap.Text))
	if snap.Text != "" {
		fmt.Printf("\n%s\n", snap.Text)
	}

	switch snap.State {
	case session.StateFailed:
		return fmt.Errorf("session failed: %s", snap.FailureMessage)
	case session.StateDisconnected:
		return fmt.Errorf("connection closed without a terminal frame")
	default:
		return nil
	}
}

func loadConfig() (chatstream.Config, error) {
	if flagConfig != "" {
		return chatstream.LoadConfig(flagConfig)
	}
	return chatstream.DefaultConfig(flagEndpoint), nil
}

func buildObservers(cfg chatstream.Config, log *slog.Logger) (metrics.Observer, func(), error) {
	list := []metrics.Observer{
		observers.NewLoggerObserver(log),
		observers.NewLatencyObserver(log),
	}
	var closers []func()

	if cfg.Observability.SummaryDir != "" {
		sum := observers.NewSummaryObserver(cfg.Observability.SummaryDir)
		list = append(list, sum)
		closers = append(closers, func() { _ = sum.Close() })
	}
	if cfg.Observability.MetricsPath != "" {
		f, err := os.OpenFile(cfg.Observability.MetricsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open metrics sink: %w", err)
		}
		list = append(list, metrics.NewJSONLObserver(f))
		closers = append(closers, func() { _ = f.Close() })
	}

	async := metrics.NewAsyncObserver(observers.NewMultiObserver(list...), 256)
	cleanup := func() {
		async.Close()
		// Give the async loop a beat to drain before sinks close.
		time.Sleep(50 * time.Millisecond)
		for _, fn := range closers {
			fn()
		}
	}
	return async, cleanup, nil
}

func printBanner() {
	tpl := "{{ .Title \"CHATSTREAM\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
