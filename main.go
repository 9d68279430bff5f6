package main

import (
	"context"
	"log"
	"net/http"

	flag "github.com/spf13/pflag"

	"goalbingo/internal/board"
	"goalbingo/internal/handlers"
	"goalbingo/internal/logging"
	"goalbingo/internal/mailer"
	"goalbingo/internal/photos"
	"goalbingo/internal/storage"
	"goalbingo/internal/suggest"
)

func main() {
	configPath := flag.String("config", "", "path to config file (HuJSON)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()
	logging.Debug = *debug

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx := context.Background()

	// Persistence is optional: without a database the server runs
	// in-memory boards only.
	var store *storage.Store
	if cfg.DatabaseURL != "" {
		db, err := storage.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		store = storage.NewStore(db)
		log.Printf("Connected to database")
	} else {
		log.Printf("DATABASE_URL not set, boards will not be persisted")
	}

	photoStore, err := photos.NewStore(cfg.PhotoDir, cfg.PhotoBaseURL)
	if err != nil {
		log.Fatalf("photo store: %v", err)
	}

	var suggester *suggest.Client
	if cfg.GCPProject != "" {
		suggester, err = suggest.NewClient(ctx, cfg.GCPProject, cfg.GCPRegion)
		if err != nil {
			log.Fatalf("suggestion client: %v", err)
		}
		log.Printf("Goal suggestions enabled (project: %s)", cfg.GCPProject)
	}

	hub := board.NewHub(store, photoStore, cfg.Goals)
	h := handlers.NewHandler(hub, mailer.LogMailer{}, suggester)

	http.HandleFunc("/new", h.HandleNew)
	http.HandleFunc("/board/", h.HandleBoard)
	http.HandleFunc("/sse/", h.HandleSSE)
	http.HandleFunc("/toggle/", h.HandleToggle)
	http.HandleFunc("/decrement/", h.HandleDecrement)
	http.HandleFunc("/photo/delete/", h.HandlePhotoDelete)
	http.HandleFunc("/photo/", h.HandlePhoto)
	http.HandleFunc("/react/", h.HandleReact)
	http.HandleFunc("/item/", h.HandleItem)
	http.HandleFunc("/save/", h.HandleSave)
	http.HandleFunc("/lock/", h.HandleLock)
	http.HandleFunc("/unlock/", h.HandleUnlock)
	http.HandleFunc("/refresh/", h.HandleRefresh)
	http.HandleFunc("/invite/", h.HandleInvite)
	http.HandleFunc("/member/remove/", h.HandleMemberRemove)
	http.HandleFunc("/suggest", h.HandleSuggest)
	http.Handle(cfg.PhotoBaseURL+"/", http.StripPrefix(cfg.PhotoBaseURL+"/",
		http.FileServer(http.Dir(photoStore.Dir()))))

	log.Printf("Goal Bingo %s listening on %s …", commit, cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, nil))
}
