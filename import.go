/*
Copyright 2025 Matchbook Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package matchbook

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/matchbookhq/matchbook/model"
)

// ImportInvoicesCSV parses invoices from a CSV stream and stores them,
// returning the number imported. Rows that fail to parse are collected and
// reported together; the valid rows still import. The invoice amount is taken
// from the dollar figure embedded in the line items text.
func (m *Matchbook) ImportInvoicesCSV(ctx context.Context, reader io.Reader) (int, error) {
	ctx, span := otel.Tracer("matchbook.import").Start(ctx, "ImportInvoicesCSV")
	defer span.End()

	csvReader := csv.NewReader(bufio.NewReader(reader))

	headers, err := csvReader.Read()
	if err != nil {
		return 0, fmt.Errorf("error reading CSV headers: %w", err)
	}

	columnMap, err := createColumnMap(headers)
	if err != nil {
		return 0, err
	}

	var invoices []*model.Invoice
	var errs []error
	rowNum := 1

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			errs = append(errs, fmt.Errorf("error reading row %d: %w", rowNum, err))
			continue
		}

		invoice, err := parseInvoiceRow(record, columnMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing row %d: %w", rowNum, err))
			continue
		}
		invoices = append(invoices, invoice)
	}

	if len(invoices) == 0 {
		if len(errs) > 0 {
			return 0, fmt.Errorf("no importable rows, encountered %d error(s): %v", len(errs), errs)
		}
		return 0, nil
	}

	count, err := m.datasource.InsertInvoices(ctx, invoices)
	if err != nil {
		return 0, err
	}

	if m.cache != nil {
		if err := m.cache.Delete(ctx, invoiceCacheKey); err != nil {
			logrus.Errorf("failed to invalidate invoice cache: %v", err)
		}
	}

	if len(errs) > 0 {
		logrus.Warningf("imported %d invoice(s), skipped %d bad row(s): %v", count, len(errs), errs)
	}

	return count, nil
}

// createColumnMap maps lowercased column names to their indices and verifies
// the columns the importer cannot do without.
func createColumnMap(headers []string) (map[string]int, error) {
	requiredColumns := []string{"InvoiceNumber", "CustomerName", "LineItems"}
	columnMap := make(map[string]int)

	for i, header := range headers {
		columnMap[strings.ToLower(strings.TrimSpace(header))] = i
	}

	for _, col := range requiredColumns {
		if _, exists := columnMap[strings.ToLower(col)]; !exists {
			return nil, fmt.Errorf("required column '%s' not found in CSV", col)
		}
	}

	return columnMap, nil
}

func parseInvoiceRow(record []string, columnMap map[string]int) (*model.Invoice, error) {
	invoiceNumber, err := getRequiredField(record, columnMap, "invoicenumber")
	if err != nil {
		return nil, err
	}

	customerName, err := getRequiredField(record, columnMap, "customername")
	if err != nil {
		return nil, err
	}

	lineItem, err := getRequiredField(record, columnMap, "lineitems")
	if err != nil {
		return nil, err
	}

	amount, err := model.ExtractLineItemAmount(lineItem)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", invoiceNumber, err)
	}

	invoice := &model.Invoice{
		InvoiceNumber: invoiceNumber,
		CustomerName:  customerName,
		LineItem:      lineItem,
		Amount:        amount,
		PaymentStatus: model.PaymentStatusUnpaid,
	}

	invoice.PaymentMethod = getOptionalField(record, columnMap, "paymentmethod")

	if dateStr := getOptionalField(record, columnMap, "invoicedate"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: invalid invoice date: %w", invoiceNumber, err)
		}
		invoice.InvoiceDate = date
	}
	if dateStr := getOptionalField(record, columnMap, "duedate"); dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: invalid due date: %w", invoiceNumber, err)
		}
		invoice.DueDate = date
	}

	return invoice, nil
}

func getRequiredField(record []string, columnMap map[string]int, field string) (string, error) {
	if index, exists := columnMap[field]; exists && index < len(record) {
		value := strings.TrimSpace(record[index])
		if value == "" {
			return "", fmt.Errorf("required field '%s' is empty", field)
		}
		return value, nil
	}
	return "", fmt.Errorf("required field '%s' not found in record", field)
}

func getOptionalField(record []string, columnMap map[string]int, field string) string {
	if index, exists := columnMap[field]; exists && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", value)
}
