package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"ringi/internal/api"
	"ringi/internal/app/config"
)

type sheetExporter interface {
	ExportURL(ctx context.Context, ttl time.Duration) (string, error)
}

// Выводит заявки листа так, как их видит сервис
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table, closeTable, err := api.NewTable(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open table:", err)
	}
	if closeTable != nil {
		defer func() { _ = closeTable() }()
	}

	book, err := api.NewBook(cfg, table)
	if err != nil {
		log.Fatal("Failed to build sheet layout:", err)
	}

	// без lock.Section: только чтение, пустой лист не получает заголовок
	snap, err := book.Peek(ctx)
	if err != nil {
		log.Fatal("Failed to read sheet:", err)
	}

	fmt.Printf("Requests in sheet %q:\n", cfg.Table.Sheet)
	for _, rec := range snap.Records {
		req := rec.Request
		approvedAt := "NULL"
		if req.ApprovedAt != nil {
			approvedAt = req.ApprovedAt.Format(time.RFC3339)
		}
		fmt.Printf("row %d: ID: %s, Status: %s, Applicant: %s, Approver: %s, Title: %s, ApprovedAt: %s\n",
			rec.Index, req.ID, req.Status, req.Applicant, req.Approver, req.Title, approvedAt)
	}

	// для table.driver=minio - ссылка на CSV листа
	if exporter, ok := table.(sheetExporter); ok {
		url, err := exporter.ExportURL(ctx, time.Hour)
		if err != nil {
			log.Fatal("Failed to sign sheet URL:", err)
		}
		fmt.Printf("Sheet download (1h): %s\n", url)
	}
}
