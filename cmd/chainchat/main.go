package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/chainchat/chainchat/adapters/events"
	"github.com/chainchat/chainchat/adapters/store"
	"github.com/chainchat/chainchat/adapters/tokenizer"
	"github.com/chainchat/chainchat/config"
	"github.com/chainchat/chainchat/ports"
	"github.com/chainchat/chainchat/registry"
	"github.com/chainchat/chainchat/service"
	transporthttp "github.com/chainchat/chainchat/transport/http"
	"github.com/chainchat/chainchat/transport/ws"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Generate a new ECDSA signing key (you would normally load this from
	// somewhere secure). Tokens do not survive a restart with a fresh key.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	var (
		userStore    ports.UserStore
		messageStore ports.MessageStore
		eventPub     ports.EventPublisher
	)

	if cfg.DevMode {
		mem := store.NewMemoryStore()
		userStore, messageStore = mem, mem
		log.Println("dev mode: using in-memory storage, events disabled")
	} else {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}

		rs := store.NewRedisStore(redisClient)
		userStore, messageStore = rs, rs
		eventPub = events.NewWatermillPublisher(publisher)
	}

	reg := registry.New()
	tok := tokenizer.NewJWTTokenizer(signKey)

	authService := service.NewAuthService(userStore, tok, cfg.ChallengeTTL, cfg.AccessTTL)
	userService := service.NewUserService(userStore)
	chatService := service.NewChatService(userStore, messageStore, reg, eventPub)

	wsHandler := ws.NewHandler(reg, authService)
	router := transporthttp.SetupRouter(authService, userService, chatService, wsHandler)

	if err := router.Run(cfg.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
