package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fuelpoint/fuelpoint-server/internal/api"
	"github.com/fuelpoint/fuelpoint-server/internal/cache"
	"github.com/fuelpoint/fuelpoint-server/internal/config"
	"github.com/fuelpoint/fuelpoint-server/internal/middleware"
	"github.com/fuelpoint/fuelpoint-server/internal/services"
	"github.com/fuelpoint/fuelpoint-server/internal/store"
	"github.com/fuelpoint/fuelpoint-server/internal/store/memory"
	"github.com/fuelpoint/fuelpoint-server/migrations"
)

type Application struct {
	Config             *config.Config
	Logger             *slog.Logger
	ShiftHandler       *api.ShiftHandler
	EndShiftHandler    *api.EndShiftHandler
	FuelSettingHandler *api.FuelSettingHandler
	Auth               *middleware.Auth
	DB                 *sql.DB
	PriceCache         *cache.RedisPriceCache
}

func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logRotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}

	w := io.MultiWriter(os.Stdout, logRotator)
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	logger := slog.New(slog.NewJSONHandler(w, handlerOpts))
	slog.SetDefault(logger)

	var (
		db               *sql.DB
		shiftStore       store.ShiftStore
		readingStore     store.ReadingStore
		consumableStore  store.ConsumableStore
		shiftConsumables store.ShiftConsumableStore
		transactionStore store.TransactionStore
		fuelSettingStore store.FuelSettingStore
		staffStore       store.StaffStore
	)

	if cfg.Database.DSN != "" {
		db, err = store.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.MigrateFS(db, migrations.FS, "."); err != nil {
			return nil, err
		}
		shiftStore = store.NewPostgresShiftStore(db)
		readingStore = store.NewPostgresReadingStore(db)
		consumableStore = store.NewPostgresConsumableStore(db)
		shiftConsumables = store.NewPostgresShiftConsumableStore(db)
		transactionStore = store.NewPostgresTransactionStore(db)
		fuelSettingStore = store.NewPostgresFuelSettingStore(db)
		staffStore = store.NewPostgresStaffStore(db)
	} else {
		logger.Warn("no database DSN configured, using in-memory store")
		mem := memory.New()
		shiftStore = mem.Shifts()
		readingStore = mem.Readings()
		consumableStore = mem.Consumables()
		shiftConsumables = mem.ShiftConsumables()
		transactionStore = mem.Transactions()
		fuelSettingStore = mem.FuelSettings()
		staffStore = mem.Staff()
	}

	var redisCache *cache.RedisPriceCache
	var priceCache cache.PriceCache = cache.NoopPriceCache{}
	if cfg.Redis.Addr != "" {
		redisCache = cache.NewRedisPriceCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		priceCache = redisCache
	}
	fuelSettingStore = cache.NewFuelSettingStore(fuelSettingStore, priceCache, logger)

	salesAggregator := services.NewSalesAggregator(transactionStore, logger)
	shiftService := services.NewShiftService(shiftStore, readingStore, staffStore, consumableStore, shiftConsumables)
	endShiftService := services.NewEndShiftService(shiftStore, readingStore, consumableStore, shiftConsumables, fuelSettingStore, salesAggregator, logger)

	shiftHandler := api.NewShiftHandler(shiftService, logger)
	endShiftHandler := api.NewEndShiftHandler(endShiftService, logger)
	fuelSettingHandler := api.NewFuelSettingHandler(fuelSettingStore, logger)
	auth := &middleware.Auth{Secret: []byte(cfg.JWTSecret)}

	app := &Application{
		Config:             cfg,
		Logger:             logger,
		ShiftHandler:       shiftHandler,
		EndShiftHandler:    endShiftHandler,
		FuelSettingHandler: fuelSettingHandler,
		Auth:               auth,
		DB:                 db,
		PriceCache:         redisCache,
	}

	return app, nil
}

func (a *Application) Close() {
	if a.PriceCache != nil {
		if err := a.PriceCache.Close(); err != nil {
			a.Logger.Error("closing redis", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("closing database", "error", err)
		}
	}
}

func (a *Application) HealthCheck(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Status is available\n")
}
