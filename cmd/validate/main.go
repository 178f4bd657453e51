// Command validate checks a question directory and exits non-zero when any
// file breaks the naming or content contract.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/p-n-ai/filge/internal/validate"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	fset := flag.NewFlagSet("validate", flag.ContinueOnError)
	fset.SetOutput(stderr)
	dir := fset.String("dir", envOr("FILGE_QUESTION_DIR", "question"), "question directory")
	format := fset.String("format", validate.FormatText, "report format: text, json or yaml")
	xlsxPath := fset.String("xlsx", "", "also write the report as an xlsx workbook to this path")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	report, err := validate.Run(*dir)
	if errors.Is(err, validate.ErrRootMissing) {
		fmt.Fprintln(stderr, "question 디렉토리가 없습니다.")
		return 1
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Text findings and the failure summary go to stderr; structured
	// reports own stdout.
	out, summary := stdout, stderr
	if *format == validate.FormatText || *format == "" {
		out, summary = stderr, stdout
	}
	if err := validate.Write(out, report, *format); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if *xlsxPath != "" {
		if err := writeWorkbook(*xlsxPath, report); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}

	if !report.OK() {
		fmt.Fprintf(stderr, "검증 실패: %s건\n", humanize.Comma(int64(len(report.Issues))))
		return 1
	}
	fmt.Fprintf(summary, "검증 성공: %s개 파일\n", humanize.Comma(int64(len(report.Files))))
	return 0
}

func writeWorkbook(path string, report validate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating workbook: %w", err)
	}
	if err := validate.WriteXLSX(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
