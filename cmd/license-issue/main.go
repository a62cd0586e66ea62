package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"keymint/internal/license"
	"keymint/internal/store"
)

func main() {
	customer := flag.String("customer", "", "customer name (required)")
	days := flag.Int("days", license.DefaultDaysValid, "validity period in days")
	maxDevices := flag.Int("max-devices", license.DefaultMaxDevices, "device quota for the license")
	storePath := flag.String("store", "licenses.json", "path to the license store file")
	flag.Parse()

	if *customer == "" {
		fmt.Fprintln(os.Stderr, `Usage: license-issue -customer "Customer Name" [-days N] [-max-devices N] [-store path]`)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	issuer := license.NewIssuer(store.NewFileStore(*storePath), logger)
	record, err := issuer.Issue(context.Background(), license.IssueRequest{
		CustomerName: *customer,
		DaysValid:    *days,
		MaxDevices:   *maxDevices,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "license issuance failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("New license created:")
	fmt.Println("Customer:   ", record.CustomerName)
	fmt.Println("Key:        ", record.Key)
	fmt.Println("Valid to:   ", record.ExpiresAt)
	fmt.Println("Max devices:", record.MaxDevices)
}
