package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/interface/stac/stactest"
	"github.com/airbusgeo/stac-uploader/service/log"
)

// In-memory STAC API and storage, to run the clients locally:
//
//	STAC_AUTH_TYPE=static STAC_TOKEN=<token>
//	STAC_API_PROTOCOL=http STAC_API_HOST=localhost STAC_API_PORT=8080 STAC_API_PATH=/stac
//	STAC_STORAGE_PROTOCOL=http STAC_STORAGE_HOST=localhost STAC_STORAGE_PORT=8080 STAC_STORAGE_PATH=/storage
//	STAC_PUBLIC_STORAGE_PROTOCOL=http STAC_PUBLIC_STORAGE_HOST=localhost STAC_PUBLIC_STORAGE_PORT=8080 STAC_PUBLIC_STORAGE_PATH=/public
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := flag.String("port", "8080", "port of the emulator")
	token := flag.String("token", "", "bearer token required by the emulator (optional)")
	collections := flag.String("collections", "", "comma-separated ids of the collections to create at startup")
	license := flag.String("license", "CC-BY-4.0", "license of the collections created at startup")
	pageSize := flag.Int("page-size", 10, "number of items per page")
	flag.Parse()

	server := stactest.NewServer(*token)
	server.PageSize = *pageSize
	if *collections != "" {
		for _, id := range strings.Split(*collections, ",") {
			server.AddCollection(common.NewCollection(id, id, *license, common.Extent{}))
		}
	}

	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + *port,
		Handler: handlers.LoggingHandler(os.Stdout, handlers.CORS(originsOk, headersOk, methodsOk)(server.Handler())),
	}
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("stac_emulator.ListenAndServe", zap.Error(err))
		}
	}()
	log.Logger(ctx).Sugar().Infof("stac emulator listening on :%s (stac: %s, storage: %s, public: %s)",
		*port, stactest.StacPath, stactest.StoragePath, stactest.PublicPath)

	<-ctx.Done()
	sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
	defer cncl()
	if err := s.Shutdown(sctx); err != nil {
		log.Fatal("stac_emulator.Shutdown", zap.Error(err))
	}
}
