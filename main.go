package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/freelancehub/backend/api"
	"github.com/freelancehub/backend/config"
	"github.com/freelancehub/backend/database"
	"github.com/freelancehub/backend/services/notify"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg := config.New()
	setupLogging(cfg)

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Error migrating schema")
	}

	currentDB := database.New(db)

	notifier := buildNotifier(cfg, currentDB)
	notifier.Start()
	defer notifier.Close()

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(currentDB, notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

func setupLogging(cfg map[string]string) {
	level, err := zerolog.ParseLevel(config.GetString(cfg, "LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if config.GetBool(cfg, "LOG_PRETTY", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openDatabase(cfg map[string]string) (*gorm.DB, error) {
	dsn := config.GetString(cfg, "DATABASE_URL", "")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			config.GetString(cfg, "DB_HOST", "localhost"),
			config.GetString(cfg, "DB_USER", "postgres"),
			config.GetString(cfg, "DB_PASSWORD", ""),
			config.GetString(cfg, "DB_NAME", "freelancehub"),
			config.GetString(cfg, "DB_PORT", "5432"),
			config.GetString(cfg, "DB_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Read-only listing and aggregation queries may be served from a replica.
	if replicaDSN := config.GetString(cfg, "REPLICA_DATABASE_URL", ""); replicaDSN != "" {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(replicaDSN)},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
	}

	return db, nil
}

func buildNotifier(cfg map[string]string, db database.Database) *notify.Notifier {
	opts := []notify.Option{}

	if apiKey := config.GetString(cfg, "RESEND_API_KEY", ""); apiKey != "" {
		from := config.GetString(cfg, "RESEND_FROM_EMAIL", "FreelanceHub <notifications@freelancehub.dev>")
		opts = append(opts, notify.WithEmail(notify.NewResendEmail(apiKey, from)))
	}

	accountSID := config.GetString(cfg, "TWILIO_ACCOUNT_SID", "")
	authToken := config.GetString(cfg, "TWILIO_AUTH_TOKEN", "")
	fromNumber := config.GetString(cfg, "TWILIO_FROM_NUMBER", "")
	if accountSID != "" && authToken != "" && fromNumber != "" {
		opts = append(opts, notify.WithSMS(notify.NewTwilioSMS(accountSID, authToken, fromNumber)))
	}

	return notify.New(db.UserRepo(), opts...)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
