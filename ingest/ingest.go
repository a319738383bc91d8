// Package ingest parses contact import files into normalized contacts,
// reporting rejected rows instead of failing the whole import.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"waleads/phone"
)

// Contact is one accepted import row.
type Contact struct {
	Phone         phone.Phone
	Name          string
	CustomMessage string
	City          string
}

// Rejected describes an import row that was excluded, with the
// 1-based line number of the row in the source file.
type Rejected struct {
	Line   int
	Raw    string
	Reason string
}

// LoadContacts reads a contact CSV from disk. See ParseContacts.
func LoadContacts(path, defaultCountryCode string) ([]Contact, []Rejected, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open contacts file: %w", err)
	}
	defer f.Close()
	return ParseContacts(f, defaultCountryCode)
}

// ParseContacts reads a CSV with a required phone column and optional
// name, custom_message, and city columns. Rows whose phone fails
// normalization, and rows duplicating an already-accepted phone, are
// excluded and reported; they never abort the import.
func ParseContacts(r io.Reader, defaultCountryCode string) ([]Contact, []Rejected, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read contacts header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	phoneCol, ok := cols["phone"]
	if !ok {
		return nil, nil, fmt.Errorf("contacts file has no phone column (got %s)", strings.Join(header, ","))
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var (
		accepted []Contact
		rejected []Rejected
		seen     = make(map[string]bool)
		line     = 1
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rejected = append(rejected, Rejected{Line: line, Reason: err.Error()})
			continue
		}
		raw := strings.Join(record, ",")
		if phoneCol >= len(record) {
			rejected = append(rejected, Rejected{Line: line, Raw: raw, Reason: "missing phone field"})
			continue
		}

		p, err := phone.Normalize(record[phoneCol], defaultCountryCode)
		if err != nil {
			rejected = append(rejected, Rejected{Line: line, Raw: raw, Reason: err.Error()})
			continue
		}
		if seen[p.Key] {
			rejected = append(rejected, Rejected{Line: line, Raw: raw, Reason: "duplicate phone " + p.E164})
			continue
		}
		seen[p.Key] = true

		accepted = append(accepted, Contact{
			Phone:         p,
			Name:          field(record, "name"),
			CustomMessage: field(record, "custom_message"),
			City:          field(record, "city"),
		})
	}
	return accepted, rejected, nil
}

// RenderTemplate substitutes {name}, {phone}, and {custom_message}
// placeholders with the contact's values. Missing values render empty,
// and the result is whitespace-trimmed.
func RenderTemplate(template string, c Contact) string {
	r := strings.NewReplacer(
		"{name}", c.Name,
		"{phone}", c.Phone.E164,
		"{custom_message}", c.CustomMessage,
	)
	return strings.TrimSpace(r.Replace(template))
}
