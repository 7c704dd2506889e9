package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rogerio-castellano/openbarcode/internal/catalog"
	"github.com/rogerio-castellano/openbarcode/internal/enrich"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/rogerio-castellano/openbarcode/internal/scan"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// wedgeScanner is a keyboard-wedge barcode reader: it types codes followed by
// Enter, so there is no permission to ask for.
type wedgeScanner struct{}

func (wedgeScanner) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

const scanHelp = `Scan or type a barcode and press Enter. Commands:
  set <field> <value>   edit name, description, status, measure_type, measure_value, qtt, categories
  brand <query>         search brands
  brand #<n>            pick result n of the last brand search
  brand! <name>         create a brand and pick it
  enrich                fill a new product from Open Food Facts
  img add <path>        upload and attach an image
  img rm <n>            remove image n
  show                  print the product being edited
  save                  create or update the product
  reset                 discard the product
  quit                  leave`

func newScanCmd(a *app) *cobra.Command {
	var preferLocal bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Interactive scan and edit session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			policy := enrich.PreferExternal
			if preferLocal {
				policy = enrich.PreferLocal
			}
			r := newREPL(a, cmd.InOrStdin(), cmd.OutOrStdout(), policy)
			defer r.close()
			return r.run(ctx)
		},
	}
	cmd.Flags().BoolVar(&preferLocal, "prefer-local", false, "keep typed values when enriching")
	return cmd
}

type repl struct {
	in  io.Reader
	out io.Writer
	log *zap.Logger

	session *scan.Session
	gallery *scan.Gallery
	picker  *scan.BrandPicker

	mu     sync.Mutex
	brands []models.Brand
}

func newREPL(a *app, in io.Reader, out io.Writer, policy enrich.MergePolicy) *repl {
	client := a.catalog()
	notify := noticePrinter(out)

	r := &repl{in: in, out: out, log: a.log}
	r.session = scan.NewSession(client,
		scan.WithEnricher(a.enricher()),
		scan.WithCamera(wedgeScanner{}),
		scan.WithNotifier(notify),
		scan.WithMergePolicy(policy),
		scan.WithLogger(a.log.Named("scan")))
	r.gallery = scan.NewGallery(catalog.NewImages(client), r.session, notify)
	r.picker = scan.NewBrandPicker(client, r.session.SelectBrand,
		scan.WithDebounce(a.cfg.BrandDebounce),
		scan.WithPickerNotifier(notify),
		scan.WithPickerLogger(a.log.Named("brands")),
		scan.WithResults(r.showBrands))
	return r
}

func (r *repl) close() {
	r.picker.Close()
	r.session.Reset()
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, scanHelp)
	if err := r.session.StartScan(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		r.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (r *repl) prompt() {
	fmt.Fprintf(r.out, "[%s]> ", r.session.State())
}

// handle runs one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, scanHelp)
	case "show":
		printDraft(r.out, r.session.Draft())
	case "set":
		err = r.set(rest)
	case "brand":
		err = r.brand(rest)
	case "brand!":
		_, err = r.picker.CreateAndSelect(ctx, rest)
	case "enrich":
		_, err = r.session.Enrich(ctx)
	case "img":
		err = r.image(ctx, rest)
	case "save":
		if _, err = r.session.Save(ctx); err == nil {
			err = r.session.StartScan(ctx)
		}
	case "reset":
		r.session.Reset()
		err = r.session.StartScan(ctx)
	default:
		r.barcode(ctx, line)
	}

	if err != nil {
		r.log.Debug("command failed", zap.String("command", cmd), zap.Error(err))
		if !notified(err) {
			fmt.Fprintln(r.out, "error:", err)
		}
	}
	return false
}

func (r *repl) barcode(ctx context.Context, code string) {
	if r.session.State() == scan.StateScanning {
		r.session.HandleScan(ctx, code)
	} else if err := r.session.Search(ctx, code); errors.Is(err, scan.ErrBusy) {
		fmt.Fprintln(r.out, "error:", err)
	}
	printDraft(r.out, r.session.Draft())
}

func (r *repl) set(args string) error {
	field, value, ok := strings.Cut(args, " ")
	if !ok {
		return errors.New("usage: set <field> <value>")
	}
	var ferr error
	if err := r.session.Edit(func(p *models.Product) {
		ferr = setField(p, field, strings.TrimSpace(value), false)
	}); err != nil {
		return err
	}
	return ferr
}

func (r *repl) brand(args string) error {
	if n, ok := strings.CutPrefix(args, "#"); ok {
		i, err := strconv.Atoi(n)
		r.mu.Lock()
		brands := r.brands
		r.mu.Unlock()
		if err != nil || i < 1 || i > len(brands) {
			return fmt.Errorf("no brand #%s in the last search", n)
		}
		return r.picker.Select(brands[i-1])
	}
	r.picker.SetQuery(args)
	return nil
}

func (r *repl) showBrands(brands []models.Brand) {
	r.mu.Lock()
	r.brands = brands
	r.mu.Unlock()

	if len(brands) == 0 {
		fmt.Fprintln(r.out, "\nNo brands found. Use brand! <name> to create one.")
		return
	}
	fmt.Fprintln(r.out)
	for i, b := range brands {
		fmt.Fprintf(r.out, "  #%d %s\n", i+1, b.Name)
	}
	r.prompt()
}

func (r *repl) image(ctx context.Context, args string) error {
	sub, arg, _ := strings.Cut(args, " ")
	arg = strings.TrimSpace(arg)

	switch sub {
	case "add":
		f, err := os.Open(arg)
		if err != nil {
			return err
		}
		defer f.Close()
		url, err := r.gallery.Add(ctx, filepath.Base(arg), f)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, "added", url)
	case "rm":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return errors.New("usage: img rm <n>")
		}
		return r.gallery.Remove(ctx, n-1)
	default:
		return errors.New("usage: img add <path> | img rm <n>")
	}
	return nil
}

// notified reports whether err was already shown to the user as a notice.
func notified(err error) bool {
	var verr *scan.ValidationError
	var apiErr *catalog.APIError
	if errors.As(err, &verr) || errors.As(err, &apiErr) {
		return true
	}
	for _, target := range []error{
		enrich.ErrUnavailable,
		catalog.ErrBrandNameRequired,
		scan.ErrNotEnrichable,
		scan.ErrTooManyImages,
		scan.ErrImageTooLarge,
		scan.ErrNotAnImage,
		scan.ErrImageDeleteFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
