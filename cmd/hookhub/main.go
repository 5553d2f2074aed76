// Command hookhub runs the relay server, the developer-machine
// connector, and the history/profile maintenance subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ap3pp3rs94/hookhub/internal/client"
	"github.com/Ap3pp3rs94/hookhub/internal/config"
	"github.com/Ap3pp3rs94/hookhub/internal/envelope"
	"github.com/Ap3pp3rs94/hookhub/internal/fanout"
	"github.com/Ap3pp3rs94/hookhub/internal/history"
	"github.com/Ap3pp3rs94/hookhub/internal/profiles"
	"github.com/Ap3pp3rs94/hookhub/internal/server"
	"github.com/Ap3pp3rs94/hookhub/internal/telemetry"
)

// onEnvelopeRecorder builds the on_envelope_received hook: every
// decoded envelope is appended to the history store under the
// configured local origin, before the forwarder issues it.
func onEnvelopeRecorder(store *history.Store, local string, log zerolog.Logger) client.OnEnvelope {
	return func(env envelope.Envelope) {
		item := history.Item{
			ReceivedAt: time.Now(),
			Local:      local,
			Request:    history.FromEnvelope(env),
		}
		if _, err := store.Append(item); err != nil {
			log.Warn().Err(err).Msg("failed to record history item")
		}
	}
}

// drainTimeout bounds how long the server waits for in-flight
// sessions to finish after a shutdown signal before forcing closed.
const drainTimeout = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "server":
		runServer(os.Args[2:])
	case "connect":
		runConnect(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "profiles":
		runProfiles(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  hookhub server -bind :8080 -secret s3cr3t [-version 1.0.0]")
	fmt.Println("  hookhub connect -profile default")
	fmt.Println("  hookhub connect -remote wss://host/__hookhub__/ -secret s3cr3t -local http://localhost:3000/")
	fmt.Println("  hookhub history list|show <id>|delete <id>|clear|replay <id>")
	fmt.Println("  hookhub profiles list|delete <name>|add <name> <remote> <secret> <local>")
}

func shutdownContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	bind := fs.String("bind", "", "address to listen on, e.g. :8080")
	secret := fs.String("secret", "", "shared secret clients must present")
	version := fs.String("version", "", "protocol version advertised to clients")
	logLevel := fs.String("log-level", "", "zerolog level (debug, info, warn, error)")
	_ = fs.Parse(args)

	cfg, err := config.LoadServer(*bind, *secret, *version, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := telemetry.New("server", cfg.LogLevel)
	ctx := shutdownContext()

	bus := fanout.New()
	srv := server.New(bus, cfg.Secret, cfg.Version, log, ctx)
	if err := srv.Run(ctx, cfg.BindAddr, drainTimeout); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func runConnect(args []string) {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	profileName := fs.String("profile", "default", "saved profile to connect with")
	remote := fs.String("remote", "", "relay WebSocket URL, e.g. wss://host/__hookhub__/")
	secret := fs.String("secret", "", "shared secret")
	local := fs.String("local", "", "local origin to forward to, e.g. http://localhost:3000/")
	version := fs.String("version", "", "protocol version to present during the handshake")
	logLevel := fs.String("log-level", "", "zerolog level (debug, info, warn, error)")
	_ = fs.Parse(args)

	home := config.ResolveHome("")

	remoteVal, secretVal, localVal := *remote, *secret, *local
	if *profileName != "" {
		store, err := profiles.Open(profilesPath(home))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		p, ok, err := store.Get(*profileName)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			// A missing profile is an error only when -profile was given
			// explicitly; a missing "default" falls through to flags/env.
			explicit := false
			fs.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "profile" })
			if explicit {
				fmt.Fprintf(os.Stderr, "profile %q not found\n", *profileName)
				os.Exit(1)
			}
		}
		remoteVal = firstNonEmpty(remoteVal, p.Remote)
		secretVal = firstNonEmpty(secretVal, p.Secret)
		localVal = firstNonEmpty(localVal, p.Local)
	}

	cfg, err := config.LoadClient(remoteVal, secretVal, localVal, *version, *logLevel, home)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := telemetry.New("connector", cfg.LogLevel)

	remoteURL, err := url.Parse(cfg.Remote)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid remote URL")
	}
	localURL, err := url.Parse(cfg.Local)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid local URL")
	}

	histStore, err := history.Open(filepath.Join(cfg.Home, "history"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not open history store")
	}

	forwarder := client.NewForwarder(localURL, telemetry.New("forwarder", cfg.LogLevel))
	connector := &client.Connector{
		Remote:     remoteURL,
		Secret:     cfg.Secret,
		Version:    cfg.Version,
		Forwarder:  forwarder,
		Log:        log,
		OnEnvelope: onEnvelopeRecorder(histStore, cfg.Local, log),
	}

	ctx := shutdownContext()
	if err := connector.Run(ctx); err != nil {
		log.Error().Err(err).Msg("connector exited with error")
		os.Exit(1)
	}
}

func runHistory(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	home := config.ResolveHome("")
	store, err := history.Open(filepath.Join(home, "history"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := telemetry.New("history", "info")

	switch args[0] {
	case "list":
		items, err := store.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ReceivedAt.Before(items[j].ReceivedAt) })
		for _, item := range items {
			fmt.Printf("[%s %s] %s %s\n", item.ID, item.ReceivedAt.Format(time.RFC3339), item.Request.Method, item.Request.FullPath)
		}
	case "show":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		item, ok, err := store.Get(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s not found\n", args[1])
			os.Exit(1)
		}
		fmt.Printf("%s %s %s\nlocal: %s\nreceived: %s\n", item.Request.Method, item.Request.FullPath, item.Request.Version, item.Local, item.ReceivedAt.Format(time.RFC3339))
		for _, h := range item.Request.Headers {
			fmt.Printf("  %s: %s\n", h.Name, h.Value)
		}
	case "delete":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		if err := store.Delete(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("item deleted")
	case "clear":
		if err := store.Clear(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("history cleared")
	case "replay":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		item, ok, err := store.Get(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s not found\n", args[1])
			os.Exit(1)
		}
		if err := history.Replay(item, log); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("replayed")
	default:
		usage()
		os.Exit(2)
	}
}

func runProfiles(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}
	home := config.ResolveHome("")
	store, err := profiles.Open(profilesPath(home))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		all := store.List()
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := all[name]
			fmt.Printf("[%s] remote: %s local: %s\n", name, p.Remote, p.Local)
		}
	case "delete":
		if len(args) < 2 {
			usage()
			os.Exit(2)
		}
		if err := store.Delete(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("profile %s deleted\n", args[1])
	case "add":
		if len(args) < 5 {
			usage()
			os.Exit(2)
		}
		name, remote, secret, local := args[1], args[2], args[3], args[4]
		if err := store.Add(name, profiles.Profile{Remote: remote, Secret: secret, Local: local}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("profile %s added\n", name)
	default:
		usage()
		os.Exit(2)
	}
}

func profilesPath(home string) string {
	return filepath.Join(home, "profiles.yaml")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
