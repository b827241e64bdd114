package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	_ "ringi/docs"
	"ringi/internal/app/config"
	"ringi/internal/app/handler"
	"ringi/internal/app/idgen"
	"ringi/internal/app/lock"
	"ringi/internal/app/middleware"
	"ringi/internal/app/notify"
	"ringi/internal/app/redis"
	"ringi/internal/app/repository"
	"ringi/internal/app/sheet"
	"ringi/internal/app/storage"
	"ringi/internal/app/workflow"
	"ringi/internal/pkg"
)

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// @title Ringi API
// @version 1.0
// @description Заявки на согласование: создание, решение согласующего, отзыв и уведомления по почте.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func StartServer() {
	logrus.Info("Starting server")

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var closers []closeFunc

	table, closeTable, err := NewTable(ctx, cfg)
	if err != nil {
		logrus.Fatalf("table: %v", err)
	}
	if closeTable != nil {
		closers = append(closers, closeTable)
	}

	book, err := NewBook(cfg, table)
	if err != nil {
		logrus.Fatalf("sheet: %v", err)
	}

	// redis нужен и для блокировки, и для blacklist токенов
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			logrus.Fatalf("redis: %v", err)
		}
		closers = append(closers, rdb.Close)
	}

	var locker lock.Locker = lock.NewMemLocker()
	if cfg.Lock.Driver == "redis" {
		locker = rdb.NewLocker(cfg.Table.Sheet, cfg.Lock.TTL)
	}
	section := lock.NewSection(locker, cfg.Lock.PollInterval, cfg.Lock.Timeout)

	var channel notify.Channel = notify.LogChannel{}
	if cfg.Mail.Driver == "smtp" {
		channel = notify.NewSMTPChannel(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
	}
	dispatcher := notify.NewDispatcher(channel, cfg.Mail.Workers)
	closers = append(closers, func() error {
		dispatcher.Close()
		return nil
	})

	composer := notify.Composer{
		SubjectPrefix: cfg.Mail.SubjectPrefix,
		BaseURL:       cfg.Mail.BaseURL,
	}

	wf := workflow.NewService(book, section, idgen.New(), composer, dispatcher, workflow.Options{
		AllowSelfApproval: cfg.Workflow.AllowSelfApproval,
		RequireDetails:    cfg.Workflow.RequireDetails,
	})

	var (
		blacklist middleware.Blacklist
		revoker   handler.TokenRevoker
	)
	if rdb != nil {
		blacklist, revoker = rdb, rdb
	}

	h := handler.NewHandler(wf, revoker, cfg)
	authMiddleware := middleware.NewAuthMiddleware(blacklist, cfg)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", cfg.Auth.Header},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(middleware.RequestMetrics())

	application := pkg.NewApp(cfg, r, h, authMiddleware)
	for _, c := range closers {
		application.OnShutdown(c)
	}
	application.RunApp()
}

// NewTable открывает хранилище листа по table.driver
func NewTable(ctx context.Context, cfg *config.Config) (sheet.Table, func() error, error) {
	switch cfg.Table.Driver {
	case "memory":
		logrus.Warn("table.driver=memory: заявки не переживут перезапуск")
		return sheet.NewMemTable(), nil, nil
	case "postgres", "sqlite":
		repo, err := repository.New(cfg.Table.Driver, cfg.Table.DSN, cfg.Table.Sheet)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case "minio":
		client, err := storage.NewMinIOClient(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewCSVSheet(client, cfg.Table.Sheet, true), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown table.driver %q", cfg.Table.Driver)
	}
}

// NewBook собирает Book с раскладкой колонок и форматом дат из конфигурации
func NewBook(cfg *config.Config, table sheet.Table) (*sheet.Book, error) {
	layout, err := sheet.NewLayout(cfg.Table.Columns)
	if err != nil {
		return nil, err
	}
	return &sheet.Book{
		Table: table,
		Codec: sheet.Codec{
			Layout:     layout,
			TimeLayout: cfg.Table.TimeLayout,
			Location:   cfg.Location(),
		},
		HeaderRow:    cfg.Table.HeaderRow,
		HeaderLayout: cfg.Table.HeaderLayout,
	}, nil
}
