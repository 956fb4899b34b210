package lmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phillip-england/lmsportal/internal/portal"
	"github.com/phillip-england/lmsportal/internal/sheet"
	"github.com/phillip-england/lmsportal/internal/textview"
)

func (c *CLI) runExport(ctx context.Context, args []string) error {
	if len(args) < 1 || (args[0] != "history" && args[0] != "employees") {
		return fmt.Errorf("%w: lmsportal export history|employees --out FILE.xlsx", ErrUsage)
	}
	fs := flag.NewFlagSet("export "+args[0], flag.ContinueOnError)
	fs.SetOutput(c.Out)
	out := fs.String("out", "", "destination .xlsx file")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}
	if strings.TrimSpace(*out) == "" {
		return errors.New("--out is required")
	}

	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	var (
		count int
		write func(f *os.File) error
	)
	switch args[0] {
	case "history":
		leaves, err := w.portal.FetchMyLeaves(ctx)
		if err != nil {
			return err
		}
		count = len(leaves)
		write = func(f *os.File) error { return sheet.WriteLeaveHistory(f, leaves) }
	default:
		records, err := w.portal.FetchEmployees(ctx)
		if err != nil {
			return err
		}
		count = len(records)
		write = func(f *os.File) error { return sheet.WriteEmployees(f, records) }
	}

	if err := writeFile(*out, write); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "wrote %d rows to %s\n", count, *out)
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// rowView prefixes notifications with the sheet line being imported.
type rowView struct {
	*textview.Terminal
	line int
}

func (v *rowView) Notify(msg string) {
	v.Terminal.Notify(fmt.Sprintf("row %d: %s", v.line, msg))
}

func (c *CLI) runImport(ctx context.Context, args []string) error {
	if len(args) < 1 || args[0] != "leaves" {
		return fmt.Errorf("%w: lmsportal import leaves --file FILE.xlsx", ErrUsage)
	}
	fs := flag.NewFlagSet("import leaves", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	file := fs.String("file", "", "source .xls or .xlsx file")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return errors.New("--file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open %s: %w", *file, err)
	}
	rows, err := sheet.ReadRows(f, *file)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	leaves, err := sheet.ParseLeaveRows(rows)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}

	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	rv := &rowView{Terminal: w.term}
	opts := w.portalOptions(rv)
	opts.SkipReloads = true
	p := portal.New(opts)
	defer p.Close()

	failed := 0
	for _, row := range leaves {
		rv.line = row.Line
		err := p.SubmitLeave(ctx, portal.LeaveForm{
			Title:       row.Title,
			StartDate:   row.StartDate,
			EndDate:     row.EndDate,
			Description: row.Description,
		})
		if errors.Is(err, portal.ErrNoSession) {
			return err
		}
		if err != nil {
			failed++
		}
	}

	fmt.Fprintf(c.Out, "imported %d of %d leave requests\n", len(leaves)-failed, len(leaves))
	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed", failed, len(leaves))
	}
	return nil
}
