package main

import (
	"flag"
	"log"

	"github.com/trijayaagung/armada-studio/config"
	"github.com/trijayaagung/armada-studio/status"
	"github.com/trijayaagung/armada-studio/storage"
	"github.com/trijayaagung/armada-studio/studio"
	"github.com/trijayaagung/armada-studio/web"
)

func main() {
	var addr, cfgPath, static string
	flag.StringVar(&addr, "i", "", "Address override for server")
	flag.StringVar(&cfgPath, "c", "armada_studio.yaml", "Path to config file")
	flag.StringVar(&static, "static", "web/data", "Directory with admin UI static files")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[config] Cannot load config: %v", err)
	}
	if addr != "" {
		cfg.Listen = addr
	}

	db, err := storage.NewBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("[storage] Cannot create backend: %v", err)
	}
	if err := db.Init(); err != nil {
		log.Fatalf("[storage] Cannot init backend: %v", err)
	}
	defer db.Close()

	hub := status.NewHub()
	session, err := studio.NewSession(cfg, db, hub)
	if err != nil {
		log.Fatalf("[studio] Cannot create session: %v", err)
	}

	server := web.NewServer(cfg, db, session, hub)
	if err := web.StartServer(cfg.Listen, server, static); err != nil {
		log.Fatalf("[web] Server failed: %v", err)
	}
}
