// Command transfer demonstrates the transport end to end: a server peer
// accepts connections and writes received blobs to disk, a client peer
// connects and uploads a file as one reliable-ordered message. The receiving
// side renders split reassembly progress as a progress bar.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/wu-vincent/RakNet/pkg/config"
	"github.com/wu-vincent/RakNet/pkg/logging"
	"github.com/wu-vincent/RakNet/pkg/peer"
	"github.com/wu-vincent/RakNet/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "path to config file (JSON)")
	listen := flag.String("listen", ":19132", "listen address (UDP, server mode)")
	connect := flag.String("connect", "", "server host to connect to (client mode)")
	port := flag.Uint("port", 19132, "server port (client mode)")
	file := flag.String("file", "", "file to upload (client mode)")
	out := flag.String("out", "received.bin", "output path for received blobs (server mode)")
	maxConns := flag.Int("max-connections", 64, "connection cap")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "log format (text, json)")
	flag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		config.ApplyToFlags(cfg)
	}

	logging.Setup(*logLevel, *logFormat)

	if *connect != "" {
		runClient(*connect, uint16(*port), *file)
		return
	}
	runServer(*listen, *out, *maxConns)
}

func runServer(listen, out string, maxConns int) {
	cfg := peer.DefaultConfig()
	cfg.ListenAddr = listen
	cfg.MaxConnections = maxConns
	cfg.MaxIncomingConnections = maxConns
	cfg.SplitProgressInterval = 16

	p := peer.New(cfg)
	if err := p.Startup(); err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer p.Shutdown()
	slog.Info("transfer server running", "addr", p.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var bar *progressbar.ProgressBar
	for {
		select {
		case <-sig:
			slog.Info("shutting down")
			return
		default:
		}

		pkt := p.Receive()
		if pkt == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch pkt.ID() {
		case protocol.IDNewIncomingConnection:
			slog.Info("client connected", "addr", pkt.Addr, "guid", pkt.GUID)
		case protocol.IDDownloadProgress:
			_, received, total, err := protocol.UnmarshalDownloadProgress(pkt.Data)
			if err == nil {
				if bar == nil {
					bar = progressbar.Default(int64(total), "receiving")
				}
				bar.Set(int(received))
			}
		case protocol.IDConnectionLost, protocol.IDDisconnectionNotification:
			slog.Info("client gone", "addr", pkt.Addr, "reason", pkt.ID())
			bar = nil
		default:
			if pkt.ID() >= protocol.IDUserPacketEnum {
				if bar != nil {
					bar.Finish()
					bar = nil
				}
				blob := pkt.Data[1:]
				if err := os.WriteFile(out, blob, 0o644); err != nil {
					slog.Error("write blob", "path", out, "error", err)
				} else {
					slog.Info("blob received", "addr", pkt.Addr, "bytes", len(blob), "path", out)
				}
			}
		}
		pkt.Release()
	}
}

func runClient(host string, port uint16, file string) {
	if file == "" {
		log.Fatal("client mode requires -file")
	}
	blob, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("read %s: %v", file, err)
	}

	cfg := peer.DefaultConfig()
	p := peer.New(cfg)
	if err := p.Startup(); err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer p.Shutdown()

	if err := p.Connect(host, port); err != nil {
		log.Fatalf("connect: %v", err)
	}
	slog.Info("connecting", "host", host, "port", port)

	payload := append([]byte{byte(protocol.IDUserPacketEnum)}, blob...)
	const receiptSerial = 1
	deadline := time.Now().Add(cfg.TimeoutDuration + 30*time.Second)

	sent := false
	for time.Now().Before(deadline) {
		pkt := p.Receive()
		if pkt == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		switch pkt.ID() {
		case protocol.IDConnectionRequestAccepted:
			slog.Info("connected", "guid", pkt.GUID)
			addr := pkt.Addr
			for p.SendWithReceipt(payload, protocol.MediumPriority, 0, addr, false, receiptSerial) == 0 {
				time.Sleep(10 * time.Millisecond)
			}
			sent = true
			slog.Info("upload queued", "bytes", len(blob))
		case protocol.IDSndReceiptAcked:
			serial, err := protocol.UnmarshalReceipt(pkt.Data)
			if err == nil && serial == receiptSerial {
				slog.Info("upload acknowledged")
				pkt.Release()
				return
			}
		case protocol.IDConnectionAttemptFailed, protocol.IDNoFreeIncomingConnections:
			log.Fatalf("connection failed: %v", pkt.ID())
		case protocol.IDConnectionLost:
			log.Fatalf("connection lost before receipt (sent=%v)", sent)
		}
		pkt.Release()
	}
	log.Fatal("timed out waiting for receipt")
}
