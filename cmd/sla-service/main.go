package main

import (
	"fmt"
	"os"

	"github.com/tverlinden/sla-service/internal/auth"
	"github.com/tverlinden/sla-service/internal/blob"
	"github.com/tverlinden/sla-service/internal/config"
	"github.com/tverlinden/sla-service/internal/db"
	"github.com/tverlinden/sla-service/internal/excel"
	httphandler "github.com/tverlinden/sla-service/internal/http"
	"github.com/tverlinden/sla-service/internal/http/middleware"
	"github.com/tverlinden/sla-service/internal/logger"
	"github.com/tverlinden/sla-service/internal/pdf"
	"github.com/tverlinden/sla-service/internal/repository"
	"github.com/tverlinden/sla-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	checklistRepo := repository.NewChecklistRepository(database)

	signatures, err := blob.NewSignatureStore(cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init signature store")
	}

	contractService := service.NewContractService(contractRepo)
	checklistService := service.NewChecklistService(contractRepo, checklistRepo)
	sessionManager := service.NewSessionManager(contractRepo, checklistRepo, signatures, cfg.Company.Name)
	reconciliationService := service.NewReconciliationService(contractRepo)

	pdfGenerator := pdf.NewGenerator()
	excelGenerator := excel.NewGenerator()

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		contractService,
		checklistService,
		sessionManager,
		reconciliationService,
		pdfGenerator,
		excelGenerator,
		cfg.Company.Name,
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting sla service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
