package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/config"
	"github.com/Tombunzel/HarmonApp/internal/es"
	"github.com/Tombunzel/HarmonApp/internal/handlers"
	"github.com/Tombunzel/HarmonApp/internal/ledger"
	"github.com/Tombunzel/HarmonApp/internal/logging"
	"github.com/Tombunzel/HarmonApp/internal/middleware/loggingmw"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
	"github.com/Tombunzel/HarmonApp/internal/token"
	httpserver "github.com/Tombunzel/HarmonApp/internal/transport/http"
)

const catalogIndex = "catalog"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init: %v", err)
	}

	brokers := []string{configuration.KAFKA_ADDRESS}
	topics := []string{"user_events", "catalog_events", "order_events"}
	prod, err := mykafka.NewProducer(brokers, topics)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	tokens := token.NewService([]byte(configuration.JWT_SECRET))
	guard := authz.NewGuard(db, tokens)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:            db,
		Guard:         guard,
		Users:         &handlers.UserHandler{DB: db, Tokens: tokens, Producer: prod},
		Artists:       &handlers.ArtistHandler{DB: db, Tokens: tokens, Producer: prod},
		Tracks:        &handlers.TrackHandler{DB: db, Producer: prod, ES: esClient, Index: catalogIndex},
		Albums:        &handlers.AlbumHandler{DB: db, Producer: prod, ES: esClient, Index: catalogIndex},
		Orders:        &handlers.OrderHandler{DB: db, Producer: prod},
		OrderItems:    &handlers.OrderItemHandler{DB: db, Ledger: &ledger.Service{DB: db}, Producer: prod},
		PaymentMethod: &handlers.PaymentMethodHandler{DB: db},
		Playlists:     &handlers.PlaylistHandler{DB: db},
		Followers:     &handlers.FollowerHandler{DB: db, Producer: prod},
		Search:        &handlers.SearchHandler{ES: esClient, Index: catalogIndex},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
