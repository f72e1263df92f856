package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"linkup/internal/auth"
	"linkup/internal/config"
	"linkup/internal/email"
	"linkup/internal/handlers"
	"linkup/internal/middleware"
	"linkup/internal/otp"
	"linkup/internal/store/sqlstore"
	"linkup/internal/ws"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Cannot parse config: %v", err)
	}

	store, err := sqlstore.New(sugar, cfg.DBDriver, cfg.DBSource)
	if err != nil {
		sugar.Fatalf("Cannot open store: %v", err)
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	mailer := email.NewSender(sugar, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	registrar := otp.NewService(sugar, store, mailer, tokens, cfg.OtpExpiry, cfg.OtpMaxAttempts)

	hub := ws.NewHub(sugar)
	go hub.Run()

	authHandler := &handlers.AuthHandler{Store: store, Otp: registrar, Tokens: tokens, Logger: sugar}
	userHandler := &handlers.UserHandler{Store: store, Logger: sugar}
	chatHandler := &handlers.ChatHandler{Store: store, Logger: sugar}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(sugar))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, tokens, w, r)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.EnforceJSON)

	api.HandleFunc("/auth/register/request-otp", authHandler.RequestOtp).Methods("POST")
	api.HandleFunc("/auth/register/verify", authHandler.VerifyOtp).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	users := api.PathPrefix("/users").Subrouter()
	users.Use(middleware.RequireAuth(tokens))
	users.HandleFunc("/search", userHandler.Search).Methods("GET")
	users.HandleFunc("/me", userHandler.Me).Methods("GET")
	users.HandleFunc("/me", userHandler.UpdateMe).Methods("PUT")
	users.HandleFunc("/requests/send", userHandler.SendRequest).Methods("POST")
	users.HandleFunc("/requests/received", userHandler.ReceivedRequests).Methods("GET")
	users.HandleFunc("/requests/accept", userHandler.AcceptRequest).Methods("POST")
	users.HandleFunc("/requests/reject", userHandler.RejectRequest).Methods("POST")
	users.HandleFunc("/connections", userHandler.Connections).Methods("GET")

	chats := api.PathPrefix("/chats").Subrouter()
	chats.Use(middleware.RequireAuth(tokens))
	chats.HandleFunc("", chatHandler.ListChats).Methods("GET")
	chats.HandleFunc("", chatHandler.CreateChat).Methods("POST")
	chats.HandleFunc("/{id}/messages", chatHandler.PostGroupMessage).Methods("POST")

	messages := api.PathPrefix("/messages").Subrouter()
	messages.Use(middleware.RequireAuth(tokens))
	messages.HandleFunc("/direct/send", chatHandler.SendDirectMessage).Methods("POST")
	messages.HandleFunc("/direct/{userId}", chatHandler.GetDirectMessages).Methods("GET")
	messages.HandleFunc("/{chatId}", chatHandler.GetChatMessages).Methods("GET")
	messages.HandleFunc("/{id}", chatHandler.DeleteMessage).Methods("DELETE")

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     r,
		ReadTimeout: 5 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		sugar.Info("Shutting down HTTP server")
		if err := srv.Shutdown(context.Background()); err != nil {
			sugar.Errorf("srv.Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	sugar.Infof("Starting HTTP server on %s", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("srv.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	sugar.Info("Closing store")
	if err := store.Close(); err != nil {
		sugar.Errorf("store.Close: %v", err)
	}
}
