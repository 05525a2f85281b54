package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/patchworks/dcsm/artnet"
	"github.com/patchworks/dcsm/config"
	"github.com/patchworks/dcsm/dispatch"
	"github.com/patchworks/dcsm/sacn"
	"github.com/patchworks/dcsm/transport"
	"github.com/patchworks/dcsm/universe"
)

func main() {
	configPath := flag.String("config", "dcsm.toml", "path to config file")
	listen := flag.String("listen", "", "override the configured listen address")
	artnetBroadcast := flag.String("artnet-broadcast", "255.255.255.255", "artnet broadcast address for targets with no unicast address")
	sniffIface := flag.String("artnet-sniff-iface", "", "network interface to passively observe ArtDmx traffic on (empty disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log.Printf("[config] loaded listen=%s targets=%d startup_patches=%d", cfg.Listen, len(cfg.Targets), len(cfg.StartupPatches))

	artSender, err := artnet.NewSender(*artnetBroadcast)
	if err != nil {
		log.Fatalf("artnet sender error: %v", err)
	}
	defer artSender.Close()

	sacnSender, err := sacn.NewSender(cfg.SACNSourceName, cfg.SACNInterface)
	if err != nil {
		log.Fatalf("sacn sender error: %v", err)
	}
	defer sacnSender.Close()
	sacnSender.StartDiscovery()

	store, err := universe.NewStore(cfg, artSender, sacnSender)
	if err != nil {
		log.Fatalf("universe store error: %v", err)
	}

	var sniffer *artnet.Sniffer
	if *sniffIface != "" {
		sniffer, err = artnet.NewSniffer(*sniffIface, store.ObserveArtNet)
		if err != nil {
			log.Fatalf("artnet sniffer error: %v", err)
		}
		sniffer.Start()
		log.Printf("[artnet] sniffing iface=%s", *sniffIface)
	}

	d := dispatch.NewDispatcher(store)

	server, err := transport.NewServer(cfg.Listen, d, cfg.Debug)
	if err != nil {
		log.Fatalf("transport listen error: %v", err)
	}
	server.Start()
	log.Printf("[transport] listening addr=%s", server.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[main] shutting down")
	server.Stop()
	if sniffer != nil {
		sniffer.Stop()
	}
}

func init() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}
