package pkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ringi/internal/app/config"
	"ringi/internal/app/handler"
	"ringi/internal/app/middleware"
)

const shutdownTimeout = 15 * time.Second

type Application struct {
	Config         *config.Config
	Router         *gin.Engine
	Handler        *handler.Handler
	AuthMiddleware *middleware.AuthMiddleware

	// закрываются после остановки HTTP-сервера, в обратном порядке
	closers []io.Closer
}

func NewApp(c *config.Config, r *gin.Engine, h *handler.Handler, am *middleware.AuthMiddleware) *Application {
	return &Application{
		Config:         c,
		Router:         r,
		Handler:        h,
		AuthMiddleware: am,
	}
}

// OnShutdown регистрирует ресурс, который закрывается при остановке
func (a *Application) OnShutdown(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *Application) RunApp() {
	logrus.Info("Server start up")

	a.Handler.RegisterAPIRoutes(a.Router, a.AuthMiddleware)

	serverAddress := fmt.Sprintf("%s:%d", a.Config.ServiceHost, a.Config.ServicePort)
	srv := &http.Server{
		Addr:              serverAddress,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on %s", serverAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}

	// письма из очереди дописываются до закрытия хранилищ
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logrus.Warnf("close: %v", err)
		}
	}

	logrus.Info("Server down")
}
