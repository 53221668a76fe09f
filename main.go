package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zenithbooks/statement-recon/internal/api"
	"github.com/zenithbooks/statement-recon/internal/config"
	"github.com/zenithbooks/statement-recon/internal/ingest"
	"github.com/zenithbooks/statement-recon/internal/invoice"
	"github.com/zenithbooks/statement-recon/internal/ledger"
	"github.com/zenithbooks/statement-recon/internal/logging"
	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/reconcile"
	"github.com/zenithbooks/statement-recon/internal/tabular"
	"github.com/zenithbooks/statement-recon/internal/writer"
)

func main() {
	flag.Usage = usage
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-recon v%s\n", api.Version)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(0)
	}

	args := flag.Args()[1:]
	var err error
	switch flag.Arg(0) {
	case "parse":
		err = runParse(args)
	case "reconcile":
		err = runReconcile(args)
	case "serve":
		err = runServe()
	case "help":
		usage()
	default:
		fatalf("Unknown command %q. Supported: parse, reconcile, serve\n", flag.Arg(0))
	}
	if err != nil {
		fatalf("Error: %v\n", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `ZenithBooks statement ingestion and reconciliation

Reads bank statements (CSV, Excel, PDF) into normalized transactions and
reconciles books against GSTR-1 exports or bank statements.

Usage:
  statement-recon parse [flags] <statement> [statement ...]
  statement-recon reconcile -books <file> (-gstr1 <file> | -statement <file>) [flags]
  statement-recon serve

Examples:
  # Normalize a statement to CSV, rejected rows to a second file
  statement-recon parse -errors feb-errors.csv feb.xlsx

  # Books against a GSTR-1 B2B export, 1 rupee tolerance
  statement-recon reconcile -books sales.csv -gstr1 gstr1-b2b.xlsx -tolerance 1

  # Sales register against statement credits, keyed by date and amount
  statement-recon reconcile -books sales.csv -statement feb.pdf -key date-amount

  # Purchase register against statement debits
  statement-recon reconcile -books purchases.csv -statement feb.pdf -key date-amount -payments

  # HTTP API (configured from the environment or .env)
  statement-recon serve
`)
}

func runParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	outputFlag := fs.String("output", "", "Output CSV file path (defaults to input filename with .csv extension)")
	errorsFlag := fs.String("errors", "", "Write rejected rows to this CSV file")
	headerFlag := fs.Bool("header", true, "Include statement metadata header rows in CSV")
	accountFlag := fs.String("account", "", "Account number written to the CSV header")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errors.New("parse needs at least one statement file")
	}
	if fs.NArg() > 1 && (*outputFlag != "" || *errorsFlag != "") {
		return errors.New("-output and -errors take a single input file")
	}

	for _, inputPath := range fs.Args() {
		if err := processStatement(inputPath, *outputFlag, *errorsFlag, *accountFlag, *headerFlag); err != nil {
			return fmt.Errorf("processing %s: %w", inputPath, err)
		}
	}
	return nil
}

func processStatement(inputPath, outputPath, errorsPath, account string, includeHeader bool) error {
	fmt.Printf("Processing: %s\n", inputPath)

	result, err := ingestFile(inputPath)
	if err != nil {
		return err
	}

	fmt.Printf("  Format: %s, header at row %d\n", result.Format, result.HeaderRow)
	for _, col := range result.Columns {
		fmt.Printf("    %-12s <- %q\n", col.Field, col.Header)
	}
	fmt.Printf("  Found %d transaction(s), %d rejected row(s)\n", result.ValidTransactions, result.ErrorCount)
	fmt.Printf("  Total debit: %s, total credit: %s\n", result.TotalDebit.StringFixed(2), result.TotalCredit.StringFixed(2))

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outPath = base + ".csv"
	}
	if outPath == inputPath {
		return fmt.Errorf("output path %s would overwrite the input", outPath)
	}

	w := &writer.CSVWriter{IncludeHeader: includeHeader}
	info := &models.StatementInfo{
		Source:        filepath.Base(inputPath),
		Format:        result.Format,
		AccountNumber: account,
		Result:        result,
	}
	if err := w.WriteToFile(outPath, info); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	fmt.Printf("  Output: %s\n", outPath)

	if result.ErrorCount > 0 {
		if errorsPath != "" {
			if err := writer.WriteErrorsToFile(errorsPath, result.Errors); err != nil {
				return fmt.Errorf("error report write failed: %w", err)
			}
			fmt.Printf("  Rejected rows: %s\n", errorsPath)
		} else {
			for _, pe := range result.Errors {
				fmt.Printf("  row %d (line %d): %s %s\n", pe.RowIndex, pe.Line, pe.Reason, pe.Detail)
			}
		}
	}

	fmt.Println("  Done.")
	return nil
}

func runReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	booksFlag := fs.String("books", "", "Books invoice register (CSV or Excel)")
	gstr1Flag := fs.String("gstr1", "", "GSTR-1 export to reconcile against")
	statementFlag := fs.String("statement", "", "Bank statement to reconcile against")
	keyFlag := fs.String("key", string(reconcile.KeyByReference), "Statement matching key: reference or date-amount")
	toleranceFlag := fs.String("tolerance", reconcile.DefaultTolerance.String(), "Largest difference treated as a clean match")
	jsonFlag := fs.Bool("json", false, "Print the result as JSON")
	outputFlag := fs.String("output", "", "Write the per-key report to this CSV file")
	paymentsFlag := fs.Bool("payments", false, "Books are payments, matched against statement debits")
	fs.Parse(args)

	if *booksFlag == "" || (*gstr1Flag == "") == (*statementFlag == "") {
		return errors.New("reconcile needs -books and exactly one of -gstr1 or -statement")
	}

	tolerance, err := decimal.NewFromString(*toleranceFlag)
	if err != nil {
		return fmt.Errorf("invalid -tolerance %q", *toleranceFlag)
	}

	books, bookErrors, err := readInvoices(*booksFlag)
	if err != nil {
		return err
	}
	reportRowErrors(*booksFlag, bookErrors)

	var external []reconcile.Record
	if *gstr1Flag != "" {
		var rowErrors []models.ParseError
		external, rowErrors, err = readInvoices(*gstr1Flag)
		if err != nil {
			return err
		}
		reportRowErrors(*gstr1Flag, rowErrors)
	} else {
		strategy, err := reconcile.ParseKeyStrategy(*keyFlag)
		if err != nil {
			return err
		}
		result, err := ingestFile(*statementFlag)
		if err != nil {
			return err
		}
		reportRowErrors(*statementFlag, result.Errors)
		external = reconcile.FromBankTransactions(result.Transactions, strategy)

		if *paymentsFlag {
			books = reconcile.AsPayments(books)
		}
		books, err = reconcile.KeyBookRecords(books, strategy)
		if err != nil {
			return err
		}
	}

	result, err := reconcile.Reconcile(books, external, reconcile.Options{Tolerance: tolerance})
	if err != nil {
		return err
	}

	if *outputFlag != "" {
		if err := writer.WriteReconciliationToFile(*outputFlag, result); err != nil {
			return fmt.Errorf("report write failed: %w", err)
		}
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Print(reconcile.HumanSummary(result))
	if *outputFlag != "" {
		fmt.Printf("Report: %s\n", *outputFlag)
	}
	return nil
}

func reportRowErrors(path string, errs []models.ParseError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %d row(s) could not be read\n", path, len(errs))
	for _, pe := range errs {
		fmt.Fprintf(os.Stderr, "  row %d (line %d): %s %s\n", pe.RowIndex, pe.Line, pe.Reason, pe.Detail)
	}
}

func decodeFile(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return tabular.DecodeFile(path, f)
}

func ingestFile(path string) (*models.IngestResult, error) {
	table, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return ingest.Ingest(table)
}

func readInvoices(path string) ([]reconcile.Record, []models.ParseError, error) {
	table, err := decodeFile(path)
	if err != nil {
		return nil, nil, err
	}
	return invoice.Parse(table)
}

func runServe() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer logger.Sync()

	var repo ledger.Repository
	if cfg.LedgerEnabled() {
		client, err := ledger.NewDynamoDBClient(context.Background(), cfg.AWSRegion)
		if err != nil {
			return err
		}
		repo = ledger.NewDynamoDBRepository(client, cfg.LedgerTableName, logger)
		logger.Info("ledger storage enabled",
			zap.String("table", cfg.LedgerTableName),
			zap.String("region", cfg.AWSRegion))
	} else {
		logger.Warn("LEDGER_TABLE_NAME not set, ledger endpoints disabled")
	}

	app := api.NewApp(api.ServerConfig{
		BodyLimitMB: cfg.MaxUploadMB,
		StaticDir:   cfg.StaticDir,
	}, api.NewHandler(repo, cfg.Tolerance, logger), logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("version", api.Version))
	return app.Listen(":" + cfg.Port)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
