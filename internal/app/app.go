package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/linkupcampus/linkup/config"
	"github.com/linkupcampus/linkup/internal/airtable"
	"github.com/linkupcampus/linkup/internal/auth"
	"github.com/linkupcampus/linkup/internal/media"
	"github.com/linkupcampus/linkup/internal/rating"
	"github.com/linkupcampus/linkup/internal/repository"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       EventBus.Bus
	pool      *ants.Pool

	services *repository.ServiceRepository
	users    *repository.UserRepository
	listings *ListingCache
	ratings  *rating.Service
	uploader *media.Uploader
	tokens   *auth.TokenManager
	auditor  *Auditor
	mailer   *Mailer
}

// Ensure Application implements all interfaces
var (
	_ DBProvider          = (*Application)(nil)
	_ ConfigProvider      = (*Application)(nil)
	_ StoreProvider       = (*Application)(nil)
	_ MarketplaceProvider = (*Application)(nil)
	_ AppContext          = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

// DB returns the audit database, nil when disabled.
func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

func (a *Application) Services() *repository.ServiceRepository { return a.services }
func (a *Application) Users() *repository.UserRepository       { return a.users }
func (a *Application) Listings() *ListingCache                 { return a.listings }
func (a *Application) Ratings() *rating.Service                { return a.ratings }
func (a *Application) Uploader() *media.Uploader               { return a.uploader }
func (a *Application) Tokens() *auth.TokenManager              { return a.tokens }
func (a *Application) Pool() *ants.Pool                        { return a.pool }
func (a *Application) Auditor() *Auditor                       { return a.auditor }

// Init wires the whole application: logger, optional database, upstream
// clients, event bus and cron jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Enabled {
		a.gormDB = getDatabase(cfg.Database)
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
		if err := a.MigrateDB(false); err != nil {
			zap.S().Errorf("database migration failed: %v", err)
		}
	}

	if err := a.InitServices(); err != nil {
		return err
	}
	a.checkCredentials()
	a.initJob()
	return nil
}

// InitServices builds the upstream clients, repositories, worker pool and
// event bus. It does not touch the logger, database or scheduler.
func (a *Application) InitServices() error {
	cfg := a.appConfig
	client, err := airtable.NewClient(airtable.Config{
		BaseURL:   cfg.Airtable.BaseURL,
		BaseID:    cfg.Airtable.BaseID,
		Token:     cfg.Airtable.Token,
		RateLimit: cfg.Airtable.RateLimit,
		Timeout:   time.Duration(cfg.Airtable.Timeout) * time.Second,
	})
	if err != nil {
		return errors.Wrap(err, "init airtable client")
	}

	a.services = repository.NewServiceRepository(client, cfg.Airtable.ServicesTable)
	a.users = repository.NewUserRepository(client, cfg.Airtable.UsersTable)
	a.listings = NewListingCache(a.services.List)
	a.ratings = rating.NewService(a.services)
	a.tokens = auth.NewTokenManager(cfg.Web.Secret, cfg.TokenTTL())
	a.uploader = media.NewUploader(media.Config{
		BaseURL:   cfg.Cloudinary.BaseURL,
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		Folder:    cfg.Cloudinary.Folder,
		MaxSize:   cfg.MaxUploadBytes(),
		Timeout:   time.Duration(cfg.Cloudinary.Timeout) * time.Second,
	})
	a.auditor = NewAuditor(a.gormDB)
	a.mailer = NewMailer(cfg.Mail)

	a.pool, err = ants.NewPool(cfg.Job.WorkerPool, ants.WithPanicHandler(func(p interface{}) {
		zap.S().Errorf("worker panic: %v", p)
	}))
	if err != nil {
		return errors.Wrap(err, "init worker pool")
	}

	a.initEvents()
	return nil
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	if cfg.System.Debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.LogFile(),
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

// checkCredentials warns about optional upstreams that are not configured.
func (a *Application) checkCredentials() {
	if !a.uploader.Configured() {
		zap.L().Warn("cloudinary credentials incomplete, image uploads will fail",
			zap.Bool("cloud_name", a.appConfig.Cloudinary.CloudName != ""),
			zap.Bool("api_key", a.appConfig.Cloudinary.APIKey != ""),
			zap.Bool("api_secret", a.appConfig.Cloudinary.APISecret != ""))
	}
	if a.appConfig.Mail.Enabled && a.appConfig.Mail.Host == "" {
		zap.L().Warn("mail enabled without a host, welcome mails are disabled")
	}
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.bus != nil {
		a.bus.WaitAsync()
	}
	if a.pool != nil {
		a.pool.Release()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
