package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// DecimalText is a measure value kept as text. The catalog API sends it as a
// JSON string ("1.5000") while form input may use a comma separator ("1,5").
type DecimalText string

func (d *DecimalText) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*d = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*d = DecimalText(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*d = DecimalText(n.String())
	return nil
}

func (d DecimalText) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// Decimal parses the text, accepting either "," or "." as the decimal
// separator. It reports false for empty or malformed input.
func (d DecimalText) Decimal() (decimal.Decimal, bool) {
	s := strings.TrimSpace(strings.Replace(string(d), ",", ".", 1))
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}
