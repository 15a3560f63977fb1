package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/finchley/burrow/internal/archive"
	"github.com/finchley/burrow/internal/database"
	"github.com/finchley/burrow/internal/email"
	"github.com/finchley/burrow/internal/logging"
	"github.com/finchley/burrow/internal/push"
	"github.com/finchley/burrow/internal/reminder"
	"github.com/finchley/burrow/internal/schedule"
	"github.com/finchley/burrow/internal/store"
	ws "github.com/finchley/burrow/internal/websocket"
)

func main() {
	logger := logging.Setup(os.Getenv("BURROW_LOG_LEVEL"))

	port := os.Getenv("BURROW_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("BURROW_DB_PATH")
	if dbPath == "" {
		dbPath = "burrow.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	memberStore := store.NewMemberStore(db)
	choreStore := store.NewChoreStore(db)
	billStore := store.NewBillStore(db)
	eventStore := store.NewEventStore(db)
	notificationStore := store.NewNotificationStore(db)
	pushStore := store.NewPushStore(db)
	rotationStore := store.NewRotationStore(db)
	settingsStore := store.NewSettingsStore(db)

	hub := ws.NewHub(logger.With("component", "websocket"))

	scheduleCfg := schedule.DefaultConfig()
	if v := os.Getenv("BURROW_CONFLICT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			scheduleCfg.ConflictRetries = n
		}
	}
	choreService := schedule.NewService(choreStore, memberStore, rotationStore, eventStore,
		scheduleCfg, logger.With("component", "schedule"))

	var emailSender reminder.EmailSender
	if token := os.Getenv("BURROW_POSTMARK_TOKEN"); token != "" {
		emailSender = email.NewClient(token, os.Getenv("BURROW_FROM_EMAIL"))
	}

	var pushSender reminder.PushSender
	if pub, priv := os.Getenv("BURROW_VAPID_PUBLIC_KEY"), os.Getenv("BURROW_VAPID_PRIVATE_KEY"); pub != "" && priv != "" {
		svc := push.NewService(push.Config{VAPIDPublicKey: pub, VAPIDPrivateKey: priv})
		pushSender = push.NewNotifier(svc, pushStore, logger.With("component", "push"))
	}

	engine := reminder.NewEngine(billStore, choreStore, eventStore, memberStore,
		time.Local, logger.With("component", "reminder"))
	guard := reminder.NewGuard(notificationStore)
	dispatcher := reminder.NewDispatcher(notificationStore, memberStore, emailSender, pushSender,
		hub, logger.With("component", "dispatch"))
	scheduler := reminder.NewScheduler(engine, guard, dispatcher, settingsStore,
		time.Local, logger.With("component", "scheduler"))
	scheduler.Start()
	defer scheduler.Stop()

	retentionDays, _ := settingsStore.GetInt("archive_retention_days", 90)
	archiver := archive.NewManager(archive.Config{
		S3: archive.S3Config{
			Endpoint:  os.Getenv("BURROW_S3_ENDPOINT"),
			Bucket:    os.Getenv("BURROW_S3_BUCKET"),
			Region:    os.Getenv("BURROW_S3_REGION"),
			AccessKey: os.Getenv("BURROW_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("BURROW_S3_SECRET_KEY"),
		},
		RetentionDays: retentionDays,
	}, choreStore, logger.With("component", "archive"))
	archiver.Start(context.Background())
	defer archiver.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/scheduler/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scheduler.Status())
	})
	mux.HandleFunc("/scheduler/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		summary := scheduler.RunImmediateCheck()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": summary.Candidates,
			"dispatched": summary.Dispatched,
			"suppressed": summary.Suppressed,
			"errors":     summary.Errors,
		})
	})
	mux.HandleFunc("/chores", func(w http.ResponseWriter, r *http.Request) {
		householdID, err := strconv.ParseInt(r.URL.Query().Get("household_id"), 10, 64)
		if err != nil {
			http.Error(w, "household_id is required", http.StatusBadRequest)
			return
		}
		chores, err := choreService.ListChores(householdID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chores)
	})
	mux.HandleFunc("/rotation/preview", func(w http.ResponseWriter, r *http.Request) {
		householdID, err := strconv.ParseInt(r.URL.Query().Get("household_id"), 10, 64)
		if err != nil {
			http.Error(w, "household_id is required", http.StatusBadRequest)
			return
		}
		weeks, _ := strconv.Atoi(r.URL.Query().Get("weeks"))
		preview, err := choreService.RotationPreview(householdID, weeks)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(preview)
	})
	mux.HandleFunc("/ws", ws.HandleWebSocket(hub))

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("burrow scheduler running", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
