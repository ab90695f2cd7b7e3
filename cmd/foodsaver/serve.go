package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodsaver/internal/db"
	"foodsaver/internal/events"
	"foodsaver/internal/expiry"
	"foodsaver/internal/lifecycle"
	"foodsaver/internal/matching"
	"foodsaver/internal/server"
	"foodsaver/internal/storage"
	"foodsaver/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return err
	}

	cognitoClient := cognitoidentityprovider.NewFromConfig(awsConfig)
	s3Client := s3.NewFromConfig(awsConfig)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := store.NewUserRepository(pool)
	donationRepo := store.NewDonationRepository(pool)
	pickupRepo := store.NewPickupRepository(pool)
	rewardRepo := store.NewRewardRepository(pool)

	lifecycleSvc := lifecycle.New(donationRepo, pickupRepo, rewardRepo, expiry.NewRuleTable())
	matchingSvc := matching.New(donationRepo)
	images := storage.NewImageStorage(s3Client, config.ImageBucket)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(config.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(config.KafkaBrokers, config.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	jwkCache, err := jwk.NewCache(context.Background(), httprc.NewClient())
	if err != nil {
		return fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", config.CognitoIssuerURL)

	err = jwkCache.Register(context.Background(), jwksURL)
	if err != nil {
		return fmt.Errorf("failed to register cognito jwks with cache: %w", err)
	}

	srv, err := server.New(
		config,
		logger,
		cognitoClient,
		userRepo,
		donationRepo,
		pickupRepo,
		rewardRepo,
		lifecycleSvc,
		matchingSvc,
		images,
		publisher,
		jwkCache,
		jwksURL,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
