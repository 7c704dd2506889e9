package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rogerio-castellano/openbarcode/internal/catalog"
	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/rogerio-castellano/openbarcode/internal/scan"
	"github.com/spf13/cobra"
)

func newLookupCmd(a *app) *cobra.Command {
	var withEnrich bool

	cmd := &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Search a barcode and print the resulting draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			s := scan.NewSession(a.catalog(),
				scan.WithEnricher(a.enricher()),
				scan.WithNotifier(noticePrinter(cmd.ErrOrStderr())),
				scan.WithLogger(a.log.Named("scan")))

			if err := s.Search(cmd.Context(), args[0]); err != nil {
				return err
			}
			if _, isNew := s.Draft().(scan.NewDraft); isNew && withEnrich {
				if _, err := s.Enrich(cmd.Context()); err != nil {
					return err
				}
			}
			printDraft(out, s.Draft())
			return nil
		},
	}
	cmd.Flags().BoolVar(&withEnrich, "enrich", false, "fill unknown products from Open Food Facts")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List, show and edit catalog products",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := a.catalog().ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tBARCODE\tNAME\tQTT\tTHUMBNAIL")
			for _, p := range products {
				thumb := ""
				if first, ok := imageurl.FirstImage(p.Images); ok {
					thumb = imageurl.DefaultThumbnailURL(first)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Barcode, p.Name, p.Qtt, thumb)
			}
			return tw.Flush()
		},
	}

	var asJSON bool
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid product ID %q", args[0])
			}
			p, err := a.catalog().GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printProduct(cmd.OutOrStdout(), p)
			return nil
		},
	}
	get.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON")

	var (
		sets    []string
		brandID int
	)
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing product",
		Long:  "Change fields of an existing product. Every field, including the barcode, can be set with --set field=value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid product ID %q", args[0])
			}
			client := a.catalog()
			d := scan.NewDetail(client, noticePrinter(cmd.ErrOrStderr()), a.log.Named("detail"))
			if _, err := d.Load(cmd.Context(), id); err != nil {
				return err
			}

			for _, kv := range sets {
				field, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set expects field=value, got %q", kv)
				}
				var ferr error
				if err := d.Edit(func(p *models.Product) { ferr = setField(p, field, value, true) }); err != nil {
					return err
				}
				if ferr != nil {
					return ferr
				}
			}
			if cmd.Flags().Changed("brand") {
				if err := selectBrandByID(cmd, client, d, brandID); err != nil {
					return err
				}
			}

			saved, err := d.Save(cmd.Context())
			if err != nil {
				return err
			}
			printProduct(cmd.OutOrStdout(), saved)
			return nil
		},
	}
	edit.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (repeatable)")
	edit.Flags().IntVar(&brandID, "brand", 0, "brand ID to assign")

	cmd.AddCommand(list, get, edit)
	return cmd
}

func selectBrandByID(cmd *cobra.Command, client *catalog.Client, d *scan.Detail, id int) error {
	brands, err := client.ListBrands(cmd.Context())
	if err != nil {
		return err
	}
	for _, b := range brands {
		if b.ID == id {
			return d.SelectBrand(b)
		}
	}
	return fmt.Errorf("brand %d not found", id)
}

func newBrandsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brands",
		Short: "List, search and create brands",
	}

	printBrands := func(cmd *cobra.Command, brands []models.Brand) {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, b := range brands {
			fmt.Fprintf(tw, "%d\t%s\n", b.ID, b.Name)
		}
		_ = tw.Flush()
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every brand",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				brands, err := a.catalog().ListBrands(cmd.Context())
				if err != nil {
					return err
				}
				printBrands(cmd, brands)
				return nil
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search brands by name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				brands, err := a.catalog().SearchBrands(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printBrands(cmd, brands)
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a brand",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := a.catalog().CreateBrand(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				printBrands(cmd, []models.Brand{b})
				return nil
			},
		},
	)
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories [query]",
		Short: "List or search product categories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				categories []models.Category
				err        error
			)
			if len(args) == 1 {
				categories, err = a.catalog().SearchCategories(cmd.Context(), args[0])
			} else {
				categories, err = a.catalog().ListCategories(cmd.Context())
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
			for _, c := range categories {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Description)
			}
			return tw.Flush()
		},
	}
}

func newImagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Upload, delete and link product images",
	}

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload an image and print its download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.Size() > scan.MaxImageSize {
				return scan.ErrImageTooLarge
			}
			mtype, err := mimetype.DetectFile(path)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(mtype.String(), "image/") {
				return scan.ErrNotAnImage
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			images := catalog.NewImages(a.catalog())
			up, err := images.Upload(cmd.Context(), filepath.Base(path), mtype.String(), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), images.URL(up.ETag))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <etag|url>",
		Short: "Delete a stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			etag := args[0]
			if strings.Contains(etag, "/") {
				var ok bool
				if etag, ok = imageurl.ExtractETag(etag); !ok {
					return errors.New("the URL does not point at a stored image")
				}
			}
			images := catalog.NewImages(a.catalog())
			if !images.Delete(cmd.Context(), etag) {
				return errors.New(images.Err())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", etag)
			return nil
		},
	}

	var width, height, quality int
	thumb := &cobra.Command{
		Use:   "thumb <url>",
		Short: "Print the thumbnail URL for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !imageurl.IsValidImageURL(args[0]) {
				return fmt.Errorf("invalid image URL %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), imageurl.ThumbnailURL(args[0], width, height, quality))
			return nil
		},
	}
	thumb.Flags().IntVar(&width, "width", 100, "thumbnail width")
	thumb.Flags().IntVar(&height, "height", 100, "thumbnail height")
	thumb.Flags().IntVar(&quality, "quality", 60, "JPEG quality")

	cmd.AddCommand(upload, del, thumb)
	return cmd
}
