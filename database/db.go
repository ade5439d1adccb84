package database

import (
	"database/sql"
	"errors"
	"log"
	"net"

	"github.com/lib/pq"

	"github.com/matchbookhq/matchbook/config"
	"github.com/matchbookhq/matchbook/internal/apierror"
)

type Datasource struct {
	Conn *sql.DB
}

// NewDataSource opens a Postgres connection for the configured DNS. Callers
// own the lifecycle and should Close when done; there is no ambient
// singleton, which keeps tests free to substitute fakes.
func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := ConnectDB(configuration.DataSource.Dns)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con}, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error ❌: %v", err)
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createInvoiceTable(db)
	if err != nil {
		return nil, err
	}
	err = createMatchTable(db)
	if err != nil {
		return nil, err
	}
	err = createInvoicePaymentTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (d *Datasource) Close() error {
	return d.Conn.Close()
}

// storeError classifies a database failure so the job coordinator can branch
// on transient-vs-permanent. Connection, resource and serialization failures
// are transient; integrity violations are conflicts; the rest default to
// internal errors, which the retry policy also treats as retryable.
func storeError(err error, message string) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apierror.NewAPIError(apierror.ErrTransient, message, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57", "40": // connection, resources, intervention, rollback
			return apierror.NewAPIError(apierror.ErrTransient, message, err)
		case "23": // integrity violation
			return apierror.NewAPIError(apierror.ErrConflict, message, err)
		}
	}

	return apierror.NewAPIError(apierror.ErrInternalServer, message, err)
}

// createTransactionTable creates a PostgreSQL table for the Transaction struct
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			iso_currency_code TEXT,
			unofficial_currency_code TEXT,
			date DATE NOT NULL,
			authorized_date DATE,
			name TEXT NOT NULL,
			merchant_name TEXT,
			category TEXT[],
			category_id TEXT,
			payment_channel TEXT,
			pending BOOLEAN NOT NULL DEFAULT FALSE,
			pending_transaction_id TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// createInvoiceTable creates a PostgreSQL table for the Invoice struct
func createInvoiceTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS invoices (
			id SERIAL PRIMARY KEY,
			invoice_id TEXT NOT NULL UNIQUE,
			invoice_number TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			invoice_date DATE,
			due_date DATE,
			line_item TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			payment_method TEXT,
			payment_status TEXT NOT NULL DEFAULT 'unpaid',
			amount_paid NUMERIC NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// createMatchTable creates a PostgreSQL table for the Match struct
func createMatchTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL,
			invoice_id TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			matched_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_matches_transaction_id ON matches (transaction_id)
	`)
	return err
}

// createInvoicePaymentTable creates the idempotency ledger for invoice
// bookkeeping. The unique pair keeps redelivered jobs from double-applying.
func createInvoicePaymentTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS invoice_payments (
			id SERIAL PRIMARY KEY,
			invoice_id TEXT NOT NULL REFERENCES invoices(invoice_id),
			transaction_id TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (invoice_id, transaction_id)
		)
	`)
	return err
}
