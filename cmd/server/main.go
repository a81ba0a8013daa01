package main // Entry point package

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/acidash/dashboard-api/internal/config"
	"github.com/acidash/dashboard-api/internal/database"
	"github.com/acidash/dashboard-api/internal/handler"
	"github.com/acidash/dashboard-api/internal/logger"
	"github.com/acidash/dashboard-api/internal/queue"
	"github.com/acidash/dashboard-api/internal/repository"
	"github.com/acidash/dashboard-api/internal/router"
	"github.com/acidash/dashboard-api/internal/service"
	"github.com/acidash/dashboard-api/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environments set vars directly

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer db.Close()

	// Redis backs the login lockout counter; nil means fail-open.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, login lockout disabled")
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tools := repository.NewToolRepo(db)

	issuer := utils.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	limiter := service.NewRedisLockout(config.LoadLockoutConfig(), rdb, log)
	audit := service.NewAuditPublisher(log)
	mailer := service.NewSMTPMailer(config.LoadMailConfig(), log)
	authn := service.NewAuthenticator(users, issuer, limiter, audit, mailer, cfg.MinPasswordLen, cfg.BcryptCost, log)
	authz := service.NewAuthorizer(users)
	creds := service.NewCredentialNotifier(users, mailer, log)

	// Drain audit events into logs/audit.log in the background. The
	// consumer reconnects on its own; a missing broker only costs audit
	// lines, never requests.
	go func() {
		if err := queue.StartAuditConsumer(log); err != nil {
			log.Error().Err(err).Msg("audit consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAPI(e, issuer, authz,
		handler.NewAuthHandler(authn, audit),
		handler.NewUserHandler(users, authn, audit, creds, cfg.BcryptCost, cfg.MinPasswordLen),
		handler.NewRoleHandler(roles),
		handler.NewToolHandler(tools, users),
	)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
