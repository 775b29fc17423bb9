package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"offerwatch/internal/browser"
	"offerwatch/internal/config"
	"offerwatch/internal/mirror"
	"offerwatch/internal/notify"
	"offerwatch/internal/scheduler"
	"offerwatch/internal/scrape"
	"offerwatch/internal/scrape/util"
	"offerwatch/internal/scrape/wttj"
	"offerwatch/internal/secrets"
	"offerwatch/internal/store"
)

type app struct {
	cfg       config.Config
	dataDir   string
	storePath string
	out       io.Writer

	db *store.DB
	pg *mirror.Postgres

	// swapped in tests
	now      func() time.Time
	lister   scrape.Lister
	channels []notify.Channel
}

func (a *app) close() {
	if a.pg != nil {
		a.pg.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "scrape":
		_, err := a.scrapeCmd(ctx)
		return err
	case "compact":
		return a.compactCmd(ctx)
	case "notify":
		_, err := a.notifyCmd(ctx)
		return err
	case "run":
		return a.runCmd(ctx, args)
	case "history":
		return a.historyCmd(ctx, args)
	case "mirror":
		return a.mirrorCmd(ctx)
	case "set-password":
		return a.setPasswordCmd(args, os.Stdin)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) journal() (*store.Journal, error) {
	if a.db == nil {
		db, err := store.OpenDB(a.cfg.JournalPath(a.dataDir))
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	return store.NewJournal(a.db), nil
}

func (a *app) mirrorSink(ctx context.Context) (*mirror.Postgres, error) {
	if a.cfg.Mirror.PostgresDSN == "" {
		return nil, nil
	}
	if a.pg == nil {
		pg, err := mirror.Open(ctx, mirror.Config{
			DSN:        a.cfg.Mirror.PostgresDSN,
			Schema:     a.cfg.Mirror.Schema,
			MaxConns:   a.cfg.Mirror.MaxConns,
			ViaBouncer: a.cfg.Mirror.ViaBouncer,
		})
		if err != nil {
			return nil, err
		}
		a.pg = pg
	}
	return a.pg, nil
}

func (a *app) pipeline(ctx context.Context) (*scrape.Pipeline, error) {
	lister := a.lister
	if lister == nil {
		lister = &wttj.Crawler{
			BaseURL:  a.cfg.Site.BaseURL,
			Language: a.cfg.Site.Language,
			Settle:   a.cfg.Settle(),
			Launch: browser.NewLauncher(browser.Options{
				Headless:   a.cfg.Browser.Headless,
				Install:    a.cfg.Browser.Install,
				UserAgent:  a.cfg.Scrape.UserAgent,
				NavTimeout: a.cfg.NavTimeout(),
			}),
		}
	}
	p := &scrape.Pipeline{
		Lister:    lister,
		Fetcher:   scrape.NewHTTPFetcher(a.cfg.Scrape.UserAgent, a.cfg.Timeout()),
		StorePath: a.storePath,
		MaxOffers: a.cfg.Scrape.MaxOffers,
		Pacer:     util.NewPacer(a.cfg.Delay()),
		Now:       a.clock,
	}
	if a.out == os.Stdout {
		p.Progress = os.Stderr
	}
	pg, err := a.mirrorSink(ctx)
	if err != nil {
		return nil, err
	}
	if pg != nil {
		p.Mirror = pg
	}
	return p, nil
}

func (a *app) scrapeCmd(ctx context.Context) (scrape.RunResult, error) {
	p, err := a.pipeline(ctx)
	if err != nil {
		return scrape.RunResult{}, err
	}
	query := a.cfg.Scrape.Query
	pterm.Fprintln(a.out, pterm.Info.Sprintf("searching %q, store %s", query, a.storePath))

	res, err := p.Run(ctx, query)
	if err != nil {
		return res, err
	}
	pterm.Fprintln(a.out, pterm.Success.Sprintf("%d offers appended, %d skipped (%d listed)",
		res.Appended, res.Skipped, res.Links))
	return res, nil
}

func (a *app) compactCmd(ctx context.Context) error {
	res, err := store.CompactDetailed(ctx, a.storePath, a.clock())
	if err != nil {
		return err
	}
	size := "?"
	if fi, err := os.Stat(a.storePath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	pterm.Fprintln(a.out, pterm.Success.Sprintf("%s: %s rows kept, %d duplicates dropped, %d new today (%s)",
		a.storePath, humanize.Comma(int64(res.Kept)), res.Dropped, res.NewToday, size))
	return nil
}

func (a *app) buildChannels() ([]notify.Channel, error) {
	if a.channels != nil {
		return a.channels, nil
	}
	var chans []notify.Channel
	if a.cfg.Notify.Mail.Enabled {
		mc := a.cfg.Notify.Mail
		pw, err := secrets.MailPassword(mc.Sender)
		if err != nil {
			return nil, err
		}
		m, err := notify.NewMailer(notify.MailConfig{
			Sender:     mc.Sender,
			Password:   pw,
			SMTPHost:   mc.SMTPHost,
			SMTPPort:   mc.SMTPPort,
			IMAPHost:   mc.IMAPHost,
			IMAPPort:   mc.IMAPPort,
			SentFolder: mc.SentFolder,
		})
		if err != nil {
			return nil, err
		}
		chans = append(chans, m)
	}
	if a.cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  a.cfg.Notify.Telegram.Token,
			ChatID: a.cfg.Notify.Telegram.ChatID,
		})
		if err != nil {
			return nil, err
		}
		chans = append(chans, tg)
	}
	return chans, nil
}

// notifyCmd returns today's count, or -1 when compaction itself failed.
func (a *app) notifyCmd(ctx context.Context) (int, error) {
	chans, err := a.buildChannels()
	if err != nil {
		return -1, fmt.Errorf("notification setup: %w", err)
	}
	if a.cfg.Notify.Mail.Enabled && a.cfg.Notify.Recipient == "" {
		return -1, errors.New("no recipient: set notify.recipient or pass -recipient")
	}
	n := notify.New(chans...)
	n.Now = a.clock

	count, err := n.NotifyIfNew(ctx, a.storePath, a.cfg.Notify.Recipient, a.cfg.Scrape.Query)
	var de *notify.DeliveryError
	switch {
	case errors.As(err, &de):
		pterm.Fprintln(a.out, pterm.Warning.Sprintf("%d new today, delivery failed: %v", count, err))
		return count, err
	case err != nil:
		return -1, err
	case count == 0:
		pterm.Fprintln(a.out, pterm.Info.Sprint("no new offers today, nothing sent"))
	default:
		pterm.Fprintln(a.out, pterm.Success.Sprintf("%d new offers sent to %s", count, a.cfg.Notify.Recipient))
	}
	return count, nil
}

// once is one journaled scrape + notify cycle.
func (a *app) once(ctx context.Context) error {
	j, err := a.journal()
	if err != nil {
		return err
	}
	id, err := j.StartRun(ctx, a.cfg.Scrape.Query, a.storePath, a.clock())
	if err != nil {
		return err
	}
	rec := store.Run{ID: id, NewEntries: -1}

	res, runErr := a.scrapeCmd(ctx)
	rec.Links, rec.Appended, rec.Skipped = res.Links, res.Appended, res.Skipped
	if runErr == nil {
		var count int
		count, runErr = a.notifyCmd(ctx)
		rec.NewEntries = count
		rec.Notified = runErr == nil && count > 0
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	rec.FinishedAt = a.clock()

	// a canceled run is still recorded
	if err := j.FinishRun(context.WithoutCancel(ctx), rec); err != nil {
		log.Printf("[journal] %v", err)
	}
	if keep := a.cfg.JournalRetention(); keep > 0 {
		if n, err := j.Prune(context.WithoutCancel(ctx), keep, rec.FinishedAt); err != nil {
			log.Printf("[journal] %v", err)
		} else if n > 0 {
			log.Printf("[journal] pruned runs=%d older_than=%s", n, keep)
		}
	}
	return runErr
}

func (a *app) runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	every := fs.Duration("every", 0, "repeat the cycle at this interval (e.g. 6h)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	interval := *every
	if interval == 0 {
		d, err := a.cfg.Every()
		if err != nil {
			return err
		}
		interval = d
	}
	if interval <= 0 {
		return a.once(ctx)
	}

	pterm.Fprintln(a.out, pterm.Info.Sprintf("running every %s, Ctrl-C to stop", interval))
	st := scheduler.Every(ctx, interval, "run", a.once)
	pterm.Fprintln(a.out, pterm.Info.Sprintf("stopped after %d runs", st.Runs))
	return nil
}

func (a *app) historyCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 20, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	j, err := a.journal()
	if err != nil {
		return err
	}
	runs, err := j.Recent(ctx, *n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		pterm.Fprintln(a.out, pterm.Info.Sprint("no runs recorded yet"))
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(a.out).WithData(historyTable(runs, a.clock())).Render()
}

func historyTable(runs []store.Run, now time.Time) pterm.TableData {
	data := pterm.TableData{{"#", "started", "query", "listed", "appended", "skipped", "new", "notified", "error"}}
	for _, r := range runs {
		newEntries := "-"
		if r.NewEntries >= 0 {
			newEntries = strconv.Itoa(r.NewEntries)
		}
		notified := "no"
		if r.Notified {
			notified = "yes"
		}
		data = append(data, []string{
			strconv.FormatInt(r.ID, 10),
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Query,
			strconv.Itoa(r.Links),
			strconv.Itoa(r.Appended),
			strconv.Itoa(r.Skipped),
			newEntries,
			notified,
			truncate(r.Error, 60),
		})
	}
	return data
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (a *app) mirrorCmd(ctx context.Context) error {
	pg, err := a.mirrorSink(ctx)
	if err != nil {
		return err
	}
	if pg == nil {
		return errors.New("mirror.postgres_dsn is not set")
	}
	offers, err := store.Load(a.storePath)
	if err != nil {
		return err
	}
	n, err := pg.Backfill(ctx, offers)
	if err != nil {
		return err
	}
	pterm.Fprintln(a.out, pterm.Success.Sprintf("%d of %d offers were new in the mirror", n, len(offers)))
	return nil
}

func (a *app) setPasswordCmd(args []string, in io.Reader) error {
	fs := flag.NewFlagSet("set-password", flag.ContinueOnError)
	del := fs.Bool("delete", false, "remove the stored password instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sender := a.cfg.Notify.Mail.Sender
	if sender == "" {
		return errors.New("notify.mail.sender is not set")
	}
	if *del {
		if err := secrets.DeleteMailPassword(sender); err != nil {
			return fmt.Errorf("delete password: %w", err)
		}
		pterm.Fprintln(a.out, pterm.Success.Sprintf("password removed from the keychain for %s", sender))
		return nil
	}
	pw, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	if err := secrets.SetMailPassword(sender, strings.TrimRight(pw, "\r\n")); err != nil {
		return err
	}
	pterm.Fprintln(a.out, pterm.Success.Sprintf("password stored in the keychain for %s", sender))
	return nil
}
