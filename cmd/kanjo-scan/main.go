package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/kanjo-app/kanjo/internal/capture"
	"github.com/kanjo-app/kanjo/internal/scanning"
)

func main() {
	fs := ff.NewFlagSet("kanjo-scan")
	var (
		server   = fs.StringLong("server", "http://localhost:8080", "Kanjo server base URL")
		token    = fs.StringLong("token", "", "Bearer token for the server (optional)")
		file     = fs.StringLong("file", "", "Receipt image to scan (jpeg, png, gif, webp, pdf or heic)")
		ledgerID = fs.StringLong("ledger", "", "Daily ledger to confirm the receipt onto")

		// Overrides applied to the extraction before confirming
		total      = fs.IntLong("total", -1, "Override the total amount in yen")
		customer   = fs.StringLong("customer", "", "Override the customer name")
		employee   = fs.StringLong("employee", "", "Override the employee name")
		date       = fs.StringLong("date", "", "Override the receipt date (YYYY-MM-DD)")
		drinks     = fs.IntLong("drinks", -1, "Override the drink count")
		champagne  = fs.StringLong("champagne", "", "Override the champagne type")
		champPrice = fs.IntLong("champagne-price", -1, "Override the champagne price in yen")
		card       = fs.BoolLong("card", "Mark the receipt as paid by card")

		yes = fs.BoolLong("yes", "Confirm without prompting")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("KANJO"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "error: --file is required")
		os.Exit(1)
	}
	if *ledgerID == "" {
		fmt.Fprintln(os.Stderr, "error: --ledger is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := scanning.NewRemote(*server, scanning.StaticToken(*token))
	session := capture.NewSession(client, *ledgerID)
	defer session.Close()

	if err := session.Begin(); err != nil {
		fail(err)
	}

	image, contentType, err := capture.ReadFile(*file)
	if err != nil {
		fail(err)
	}
	if err := session.Capture(image, contentType); err != nil {
		fail(err)
	}

	fmt.Println("Scanning...")
	if err := session.Process(ctx); err != nil {
		fail(err)
	}

	printExtraction(session)

	edited := session.Edited()
	if *total >= 0 {
		edited.TotalAmount = total
	}
	if *customer != "" {
		edited.CustomerName = customer
	}
	if *employee != "" {
		edited.EmployeeName = employee
	}
	if *date != "" {
		edited.Date = date
	}
	if *drinks >= 0 {
		edited.DrinkCount = drinks
	}
	if *champagne != "" {
		edited.ChampagneType = champagne
	}
	if *champPrice >= 0 {
		edited.ChampagnePrice = champPrice
	}
	if *card {
		v := true
		edited.IsCard = &v
	}

	if !*yes && session.Tier() != scanning.TierHigh {
		fmt.Println("Confidence is not high; re-run with field overrides and --yes to confirm.")
		os.Exit(1)
	}

	if err := session.Confirm(ctx); err != nil {
		fail(err)
	}

	fmt.Printf("Confirmed receipt %s on ledger %s\n", session.ReceiptID(), *ledgerID)
}

func printExtraction(session *capture.Session) {
	data := session.Edited()
	fmt.Printf("Confidence: %.2f (%s)\n", session.Confidence(), session.Tier())
	if session.TestMode() {
		fmt.Println("Test mode extraction")
	}
	if data.TotalAmount != nil {
		fmt.Printf("  Total:      ¥%d\n", *data.TotalAmount)
	}
	if data.CustomerName != nil {
		fmt.Printf("  Customer:   %s\n", *data.CustomerName)
	}
	if data.EmployeeName != nil {
		fmt.Printf("  Employee:   %s\n", *data.EmployeeName)
	}
	if data.Date != nil {
		fmt.Printf("  Date:       %s\n", *data.Date)
	}
	if data.DrinkCount != nil {
		fmt.Printf("  Drinks:     %d\n", *data.DrinkCount)
	}
	if data.ChampagneType != nil {
		fmt.Printf("  Champagne:  %s\n", *data.ChampagneType)
	}
	if data.ChampagnePrice != nil {
		fmt.Printf("  Champagne price: ¥%d\n", *data.ChampagnePrice)
	}
	if data.IsCard != nil && *data.IsCard {
		fmt.Println("  Paid by card")
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
