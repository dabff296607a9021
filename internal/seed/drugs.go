package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pharmacy-orders/internal/core"

	"github.com/shopspring/decimal"
)

// drugHeader is the column order expected in the catalog CSV.
var drugHeader = []string{"name", "generic_name", "manufacturer", "dosage_form", "price", "initial_stock", "requires_prescription"}

// ParseDrugs reads a drug catalog CSV. The first row must be the header. Rows with an
// empty name are skipped; any other malformed row is an error naming its line.
func ParseDrugs(r io.Reader) ([]core.DrugInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(drugHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range drugHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, fmt.Errorf("unexpected header column %d: %q, want %q", i+1, header[i], col)
		}
	}

	var drugs []core.DrugInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[4]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q", line, record[4])
		}
		stock, err := strconv.Atoi(strings.TrimSpace(record[5]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid initial_stock %q", line, record[5])
		}
		rx, err := strconv.ParseBool(strings.TrimSpace(record[6]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid requires_prescription %q", line, record[6])
		}

		drugs = append(drugs, core.DrugInput{
			Name:                 name,
			GenericName:          strings.TrimSpace(record[1]),
			Manufacturer:         strings.TrimSpace(record[2]),
			DosageForm:           strings.TrimSpace(record[3]),
			Price:                price,
			InitialStock:         stock,
			RequiresPrescription: rx,
		})
	}
	return drugs, nil
}
