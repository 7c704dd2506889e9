package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/rogerio-castellano/openbarcode/internal/scan"
)

// setField assigns a textual value to one editable product field. The
// barcode is only editable when allowBarcode is set.
func setField(p *models.Product, field, value string, allowBarcode bool) error {
	switch strings.ToLower(field) {
	case "name":
		p.Name = value
	case "description":
		p.Description = value
	case "status":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.New("status must be true or false")
		}
		p.Status = b
	case "measure_type", "unit":
		mt := models.MeasureType(strings.ToLower(value))
		if !mt.Valid() {
			return fmt.Errorf("measure type must be one of %v", models.MeasureTypes)
		}
		p.MeasureType = mt
	case "measure_value", "measure":
		p.MeasureValue = models.DecimalText(value)
	case "qtt", "quantity":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.New("qtt must be a whole number")
		}
		p.Qtt = n
	case "categories":
		ids, err := parseIDs(value)
		if err != nil {
			return err
		}
		p.CategoryIDs = ids
	case "barcode":
		if !allowBarcode {
			return errors.New("the barcode cannot be changed here")
		}
		p.Barcode = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printProduct(w io.Writer, p models.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if p.ID != 0 {
		fmt.Fprintf(tw, "ID\t%d\n", p.ID)
	}
	fmt.Fprintf(tw, "Barcode\t%s\n", p.Barcode)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Description\t%s\n", p.Description)
	if p.Brand != nil {
		fmt.Fprintf(tw, "Brand\t%s\n", p.Brand.Name)
	}
	fmt.Fprintf(tw, "Measure\t%s %s\n", p.MeasureValue, p.MeasureType)
	fmt.Fprintf(tw, "Qtt\t%d\n", p.Qtt)
	fmt.Fprintf(tw, "Status\t%t\n", p.Status)
	for i, u := range imageurl.ParseImageURLs(p.Images) {
		fmt.Fprintf(tw, "Image %d\t%s\n", i+1, u)
	}
	_ = tw.Flush()
}

func printDraft(w io.Writer, d scan.Draft) {
	switch v := d.(type) {
	case scan.Found:
		fmt.Fprintln(w, "Existing product:")
		printProduct(w, v.Product)
	case scan.NewDraft:
		fmt.Fprintln(w, "New product:")
		printProduct(w, v.Product)
	default:
		fmt.Fprintln(w, "No product loaded.")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// noticePrinter writes notices as they arrive.
func noticePrinter(w io.Writer) scan.Notifier {
	return scan.NotifierFunc(func(n scan.Notice) {
		fmt.Fprintln(w, n)
	})
}
