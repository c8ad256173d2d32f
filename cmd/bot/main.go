package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"topup-bot-backend/internal/common/config"
	"topup-bot-backend/internal/common/logger"
	"topup-bot-backend/internal/common/validation"
	"topup-bot-backend/internal/dispatch"
	accountredis "topup-bot-backend/internal/features/account/repository/redis"
	authredis "topup-bot-backend/internal/features/auth/repository/redis"
	authservice "topup-bot-backend/internal/features/auth/service"
	catalogredis "topup-bot-backend/internal/features/catalog/repository/redis"
	catalogservice "topup-bot-backend/internal/features/catalog/service"
	ledgerservice "topup-bot-backend/internal/features/ledger/service"
	maintredis "topup-bot-backend/internal/features/maintenance/repository/redis"
	maintenance "topup-bot-backend/internal/features/maintenance/service"
	orderservice "topup-bot-backend/internal/features/order/service"
	topupservice "topup-bot-backend/internal/features/topup/service"
	"topup-bot-backend/internal/features/topup/state"
	adminhttp "topup-bot-backend/internal/http"
	"topup-bot-backend/internal/platform/redis"
	"topup-bot-backend/internal/service/notifier"
	"topup-bot-backend/internal/utils/keymutex"
	"topup-bot-backend/internal/workers"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init("topup-bot-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redis.Open(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()
	logger.Info().Str("host", cfg.Redis.Host).Msg("redis connected")

	ownerChatID, err := strconv.ParseInt(cfg.Telegram.OwnerID, 10, 64)
	if err != nil {
		logger.Fatal().Err(err).Msg("OWNER_ID must be numeric")
	}
	opsChatID, err := strconv.ParseInt(cfg.Telegram.OpsChatID, 10, 64)
	if err != nil {
		logger.Fatal().Err(err).Msg("OPS_CHAT_ID must be numeric")
	}

	notify, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, ownerChatID, opsChatID)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram notifier init failed")
	}

	accounts := accountredis.NewAccountRepository(rdb.Client)
	authorizedSet := authredis.NewAuthorizedSetRepository(rdb.Client)
	overrides := catalogredis.NewOverrideRepository(rdb.Client)
	flags := maintredis.NewFlagRepository(rdb.Client)

	restrictions := state.NewRestrictionStore()
	stages := state.NewStageStore()
	locks := keymutex.New()

	auth := authservice.NewAuthService(authorizedSet, restrictions, notify, cfg.Telegram.OwnerID)
	switchboard := maintenance.NewSwitchboardService(flags)
	catalog := catalogservice.NewCatalogService(overrides, cfg.Catalog.WeeklyPassUnitPrice)
	ledger := ledgerservice.NewLedgerService(accounts, locks)
	banned := validation.NewBannedAccountFilter(validation.DefaultDenyList)

	orders := orderservice.NewOrderService(auth, switchboard, restrictions, banned, catalog, ledger, notify)
	topups := topupservice.NewTopupService(auth, switchboard, stages, restrictions, ledger, accounts, notify, cfg.Topup.MinAmount)

	if err := topups.RehydrateRestrictions(ctx); err != nil {
		logger.Fatal().Err(err).Msg("restriction rehydration failed")
	}

	dispatcher := dispatch.NewDispatcher(accounts, auth, switchboard, restrictions, catalog, ledger, orders, topups, notify)

	worker := workers.NewUpdatesWorker(rdb, dispatcher)
	go worker.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := adminhttp.NewAdminHandler(accounts, auth, switchboard, catalog, notify, cfg.Telegram.OwnerID)
	router := adminhttp.NewRouter(cfg.AdminAPI, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AdminAPI.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.AdminAPI.Port).Msg("admin API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("admin API failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin API forced shutdown")
	}

	logger.Info().Msg("stopped")
}
