// Package sqlite stores validation reports in a SQLite database
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/report"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	schemaVersion    = 1
)

// Writer handles writing reports to SQLite database files
type Writer struct {
	db          *sql.DB
	outputPath  string
	reportStmt  *sql.Stmt
	messageStmt *sql.Stmt
	checkStmt   *sql.Stmt
	closed      bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ReportTable (
		ReportId INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT,
		CreationDate TEXT,
		NumProteins INTEGER,
		NumPeptides INTEGER,
		NumPSMs INTEGER,
		NumSpectra INTEGER,
		NumFound INTEGER,
		NumMissing INTEGER,
		NumErrors INTEGER,
		NumWarnings INTEGER
	);

	CREATE TABLE IF NOT EXISTS MessageTable (
		MessageId INTEGER PRIMARY KEY AUTOINCREMENT,
		ReportId INTEGER REFERENCES ReportTable(ReportId),
		Type TEXT,
		Message TEXT
	);

	CREATE TABLE IF NOT EXISTS SpectrumCheckTable (
		CheckId INTEGER PRIMARY KEY AUTOINCREMENT,
		ReportId INTEGER REFERENCES ReportTable(ReportId),
		File TEXT,
		DeclaredId TEXT,
		ResolvedId TEXT,
		Strategy TEXT,
		Found BOOL,
		MSLevel INTEGER,
		PrecursorMass DOUBLE,
		Problem TEXT,
		blobMass BLOB,
		blobIntensity BLOB
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

func (w *Writer) prepareStatements() error {
	var err error

	w.reportStmt, err = w.db.Prepare(`
		INSERT INTO ReportTable (
			Name, CreationDate, NumProteins, NumPeptides, NumPSMs,
			NumSpectra, NumFound, NumMissing, NumErrors, NumWarnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare report statement: %w", err)
	}

	w.messageStmt, err = w.db.Prepare(`
		INSERT INTO MessageTable (ReportId, Type, Message) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare message statement: %w", err)
	}

	w.checkStmt, err = w.db.Prepare(`
		INSERT INTO SpectrumCheckTable (
			ReportId, File, DeclaredId, ResolvedId, Strategy, Found,
			MSLevel, PrecursorMass, Problem, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare spectrum check statement: %w", err)
	}

	return nil
}

// WriteReport stores a report with its messages and spectrum checks and
// returns the new report id
func (w *Writer) WriteReport(name string, r *report.Report) (int64, error) {
	res, err := w.reportStmt.Exec(
		name,
		time.Now().Format(headerDateFormat),
		r.NumProteins,
		r.NumPeptides,
		r.NumPSMs,
		r.NumSpectra,
		r.NumFound,
		r.NumMissing,
		r.Count(report.Error),
		r.Count(report.Warning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	for _, m := range r.Messages {
		if _, err := w.messageStmt.Exec(reportID, string(m.Type), m.Message); err != nil {
			return 0, fmt.Errorf("failed to insert message: %w", err)
		}
	}
	for _, c := range r.Checks {
		if err := w.WriteSpectrumCheck(reportID, c); err != nil {
			return 0, err
		}
	}
	return reportID, nil
}

// WriteSpectrumCheck writes a single spectrum lookup. Peaks are stored only
// for spectra that were found.
func (w *Writer) WriteSpectrumCheck(reportID int64, c report.SpectrumCheck) error {
	var mzBlob, intBlob interface{}
	if c.Found && len(c.Peaks) > 0 {
		mzBlob = encodePeaksFloat64(c.Peaks, true)
		intBlob = encodePeaksFloat64(c.Peaks, false)
	}

	_, err := w.checkStmt.Exec(
		reportID,
		c.File,
		c.DeclaredID,
		c.ResolvedID,
		c.Strategy,
		c.Found,
		c.MSLevel,
		c.PrecursorMZ,
		c.Problem,
		mzBlob,
		intBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert spectrum check: %w", err)
	}
	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		value := peak.Intensity
		if useMZ {
			value = peak.MZ
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// Finalize writes the header table and closes the database. Calling it
// again, or after Abort, is a no-op.
func (w *Writer) Finalize() error {
	if w.closed {
		return nil
	}

	now := time.Now().Format(headerDateFormat)
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now, now, "pxvalidator report")
	if err != nil {
		w.Abort()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	return w.Abort()
}

// Abort closes the database without writing the header table, leaving a
// partially written file unmarked.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true

	for _, stmt := range []*sql.Stmt{w.reportStmt, w.messageStmt, w.checkStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
