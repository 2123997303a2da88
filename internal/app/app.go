package app

import (
	"context"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/storekit/storekit/config"
	"github.com/storekit/storekit/internal/assetstore"
	"github.com/storekit/storekit/internal/domain"
	"github.com/storekit/storekit/internal/product"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	assets    assetstore.Store
	bus       EventBus.Bus
	service   *product.Service
	repo      product.Repository
	sched     *cron.Cron

	// orphan refs seen by the previous sweep run; removed only when
	// still unreferenced on the next run, so an in-flight create whose
	// record has not landed yet is never swept.
	sweepCandidates map[string]bool
}

// Ensure Application implements all provider interfaces
var (
	_ DBProvider      = (*Application)(nil)
	_ ConfigProvider  = (*Application)(nil)
	_ AssetsProvider  = (*Application)(nil)
	_ ServiceProvider = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, sweepCandidates: map[string]bool{}}
}

func (a *Application) Config() *config.AppConfig { return a.appConfig }
func (a *Application) DB() *gorm.DB              { return a.gormDB }
func (a *Application) Assets() assetstore.Store  { return a.assets }
func (a *Application) Bus() EventBus.Bus         { return a.bus }
func (a *Application) Service() *product.Service { return a.service }
func (a *Application) Repo() product.Repository  { return a.repo }
func (a *Application) Scheduler() *cron.Cron     { return a.sched }

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) Init(cfg *config.AppConfig) error {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	a.initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB, err = getDatabase(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	a.assets, err = a.initAssetStore(cfg)
	if err != nil {
		return err
	}

	a.bus = EventBus.New()
	a.initEventLog()

	a.repo = product.NewGormProductRepository(a.gormDB)
	a.service = product.NewService(a.repo, a.assets, a.bus, cfg.Storage.MaxImageSize)

	a.initJob()
	return nil
}

func (a *Application) initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

func (a *Application) initAssetStore(cfg *config.AppConfig) (assetstore.Store, error) {
	switch cfg.Storage.Backend {
	case "bolt":
		dbfile := cfg.Storage.Root
		if dbfile == "" {
			dbfile = filepath.Join(cfg.System.Workdir, "assets.db")
		}
		return assetstore.NewBoltStore(dbfile)
	default:
		root := cfg.Storage.Root
		if root == "" {
			root = filepath.Join(cfg.System.Workdir, "assets")
		}
		return assetstore.NewFilesystemStore(root), nil
	}
}

// initEventLog subscribes an audit logger to the product lifecycle
// topics.
func (a *Application) initEventLog() {
	logEvent := func(topic string) func(id int64) {
		return func(id int64) {
			zap.L().Info("product event", zap.String("topic", topic), zap.Int64("id", id))
		}
	}
	for _, topic := range []string{
		product.TopicCreated,
		product.TopicUpdated,
		product.TopicAvailability,
		product.TopicDeleted,
	} {
		_ = a.bus.Subscribe(topic, logEvent(topic))
	}
}

func (a *Application) MigrateDB() error {
	return a.gormDB.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) InitDb() {
	a.DropAll()
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
	}
}

// StartBackgroundJobs starts the cron runner.
func (a *Application) StartBackgroundJobs(ctx context.Context) {
	a.sched.Start()
	go func() {
		<-ctx.Done()
		a.sched.Stop()
	}()
}

// Release releases application resources.
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.assets != nil {
		_ = a.assets.Close()
	}
	_ = zap.L().Sync()
}
