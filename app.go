package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"minutebook/timeline"
	"minutebook/workbook"
)

type App struct {
	cfg  Config
	repo *Repo
}

func NewApp(cfg Config, repo *Repo) *App {
	return &App{cfg: cfg, repo: repo}
}

// InitWorkbook creates the workbook from a departments file and registers
// every employee.
func (a *App) InitWorkbook(staffPath string, force bool) error {
	if _, err := os.Stat(a.cfg.Workbook); err == nil && !force {
		return fmt.Errorf("workbook %s already exists, use --force to replace it", a.cfg.Workbook)
	}

	f, err := os.Open(staffPath)
	if err != nil {
		return fmt.Errorf("failed to open departments file: %w", err)
	}
	defer f.Close()

	deps, err := workbook.ParseDepartments(f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(a.cfg.Workbook), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	header := []string{"Date", "Time", a.cfg.LabelHeader}
	summaries, err := workbook.Create(a.cfg.Workbook, deps, header)
	if err != nil {
		return err
	}

	employees := 0
	for _, d := range deps {
		for _, e := range d.Employees {
			if err := a.repo.CreateEmployee(timeline.SheetName(e), d.Name); err != nil {
				return fmt.Errorf("failed to register employee %q: %w", e, err)
			}
			employees++
		}
	}

	fmt.Printf("Created %s with %d department sheet(s) and %d employee(s)\n", a.cfg.Workbook, len(summaries), employees)
	return nil
}

// MergeFiles merges each call log in turn. Files merged before are
// reported and skipped.
func (a *App) MergeFiles(ctx context.Context, paths []string, force bool) error {
	return mergeEach(ctx, paths, force, a.Merge)
}

// ImportActivity merges each PC-activity export in turn.
func (a *App) ImportActivity(ctx context.Context, paths []string, force bool) error {
	return mergeEach(ctx, paths, force, a.MergeActivity)
}

func mergeEach(ctx context.Context, paths []string, force bool, merge func(context.Context, string, bool) (MergeResult, error)) error {
	for _, path := range paths {
		res, err := merge(ctx, path, force)
		if errors.Is(err, ErrAlreadyMerged) {
			fmt.Printf("%s was already merged, use --force to merge it again\n", path)
			continue
		}
		if err != nil {
			return err
		}
		PrintMergeResult(res)
	}
	return nil
}

// PullBitrix merges calls from the Bitrix24 portal started in [from, to).
func (a *App) PullBitrix(ctx context.Context, from, to time.Time, force bool) error {
	if a.cfg.Bitrix.WebhookURL == "" {
		return errors.New("bitrix webhook is not configured, set bitrix.webhook_url or BITRIX_WEBHOOK_URL")
	}
	if !to.After(from) {
		return fmt.Errorf("empty range %s - %s", from.Format(timeline.DateLayout), to.Format(timeline.DateLayout))
	}

	u, err := url.Parse(a.cfg.Bitrix.WebhookURL)
	if err != nil {
		return fmt.Errorf("invalid bitrix webhook: %w", err)
	}

	client := NewBitrixClient(a.cfg.Bitrix.WebhookURL, a.cfg.Bitrix.Users, a.cfg.CompanyZone())
	source := fmt.Sprintf("bitrix:%s %s..%s", u.Host, from.Format(timeline.DateLayout), to.Format(timeline.DateLayout))

	st := &mergeState{
		source:      source,
		fingerprint: source,
		load: func(ctx context.Context) (batch, error) {
			res, err := client.GetCalls(ctx, from, to)
			if err != nil {
				return batch{}, err
			}
			// Bitrix24 times are absolute and already converted to company time
			return a.callBatch(res, nil), nil
		},
	}

	res, err := a.runMerge(ctx, st, force)
	if errors.Is(err, ErrAlreadyMerged) {
		fmt.Printf("%s was already merged, use --force to merge it again\n", source)
		return nil
	}
	if err != nil {
		return err
	}
	PrintMergeResult(res)
	return nil
}

func PrintMergeResult(res MergeResult) {
	fmt.Printf("Merged %s: %d event(s), %d skipped, %d unreadable\n", res.Source, res.Events, res.Skipped, res.Invalid)

	var rows [][]string
	for _, name := range sortedKeys(res.Report.Inserted) {
		rows = append(rows, []string{name, "inserted", strconv.Itoa(res.Report.Inserted[name])})
	}
	for _, name := range sortedKeys(res.Report.Dropped) {
		rows = append(rows, []string{name, "no sheet", strconv.Itoa(res.Report.Dropped[name])})
	}
	for _, name := range sortedKeys(res.Report.Failed) {
		rows = append(rows, []string{name, "failed", res.Report.Failed[name].Error()})
	}
	if len(rows) == 0 {
		return
	}

	footers := []string{"Total:", "", fmt.Sprintf("%d row(s)", res.Report.TotalInserted())}
	PrintTable([]string{"Sheet", "Result", "Rows"}, rows, footers)
	if !res.Saved {
		fmt.Println("Workbook was not changed.")
	}
}

// ListSheets prints every sheet with its number of rows.
func (a *App) ListSheets() error {
	book, err := workbook.Open(a.cfg.Workbook)
	if err != nil {
		return err
	}
	defer book.Close()

	summaries := make(map[string]bool)
	for _, name := range book.SummarySheets() {
		summaries[name] = true
	}

	var rows [][]string
	for _, s := range book.Sheets {
		kind := "employee"
		if summaries[s.Name] {
			kind = "department"
		}
		rows = append(rows, []string{s.Name, kind, strconv.Itoa(len(s.Rows))})
	}

	PrintTable([]string{"Sheet", "Kind", "Rows"}, rows, nil)
	return nil
}

// Show prints one employee's timeline and their total call minutes.
func (a *App) Show(name string) error {
	book, err := workbook.Open(a.cfg.Workbook)
	if err != nil {
		return err
	}
	defer book.Close()

	sheetName := timeline.SheetName(name)
	if !a.repo.CheckEmployeeExists(sheetName) {
		log.Printf("%q is not a registered employee", sheetName)
	}
	s, err := book.Sheet(sheetName)
	if err != nil {
		return err
	}

	labelCol := s.Column(a.cfg.LabelHeader)
	minutes := 0

	rows := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		cells := make([]string, len(s.Header))
		copy(cells, r.Cells)
		rows = append(rows, cells)
		if labelCol >= 0 && r.Cell(labelCol) != "" {
			minutes++
		}
	}

	fmt.Printf("Sheet - %s\n", s.Name)
	footers := []string{"", "Total:", FormatDuration(time.Duration(minutes) * time.Minute)}
	PrintTable(s.Header, rows, footers)
	return nil
}

// History prints merge runs of the current day, week, month or year,
// showing each day once.
func (a *App) History(period string) error {
	startTime, endTime, err := periodBounds(period, time.Now())
	if err != nil {
		return err
	}

	runs, err := a.repo.GetRunsBetween(startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No merges in this period.")
		return nil
	}

	headers := []string{"Day", "Start", "Source", "Status", "Calls", "Rows", "No sheet", "Took"}

	var rows [][]string
	totalCalls, totalRows := 0, 0

	var lastDay string
	for _, run := range runs {
		started := run.StartedAt.Local()
		day := started.Format("Jan 02, 2006")
		took := ""
		if !run.FinishedAt.IsZero() {
			took = FormatDuration(run.FinishedAt.Sub(run.StartedAt))
		}
		totalCalls += run.Calls
		totalRows += run.Inserted

		shownDay := ""
		if day != lastDay {
			shownDay = day
			lastDay = day
		}

		rows = append(rows, []string{
			shownDay,
			started.Format("15:04:05"),
			run.Source,
			run.Status,
			strconv.Itoa(run.Calls),
			strconv.Itoa(run.Inserted),
			strconv.Itoa(run.Dropped),
			took,
		})
	}

	footers := []string{"", "", "", "Total:", strconv.Itoa(totalCalls), strconv.Itoa(totalRows), "", ""}
	PrintTable(headers, rows, footers)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
