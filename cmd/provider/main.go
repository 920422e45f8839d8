// The provider command runs the data-provider gateway: an HTTP service that
// validates remote file URLs, probes their metadata and streams their content
// to authorized consumers.
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/datariver/provider-go/pkg/provider"
)

func main() {
	_ = godotenv.Load()

	cfg, port := loadConfig()

	core, err := provider.New(cfg)
	if err != nil {
		zap.L().Fatal("cannot initialize provider", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           newRouter(core),
		ReadHeaderTimeout: 10 * time.Second,
	}

	zap.L().Info("provider gateway listening",
		zap.Int("port", port),
		zap.String("address", core.Address().Hex()))

	if err := srv.ListenAndServe(); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}
