package table

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"
)

// ExportOptions lists the extra copies written next to every CSV output.
type ExportOptions struct {
	// XLSX writes <output>.xlsx with the table on one sheet.
	XLSX bool
	// SQLitePath, when set, (re)creates the table in that database under the
	// output file stem.
	SQLitePath string
}

// Save writes t as CSV to path and then produces the requested exports. It
// returns every file written.
func Save(t *Table, path string, opts ExportOptions) ([]string, error) {
	if err := t.WriteCSV(path); err != nil {
		return nil, err
	}
	written := []string{path}

	name := Stem(path)
	if opts.XLSX {
		book := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
		if err := WriteXLSX(t, book, name); err != nil {
			return written, err
		}
		written = append(written, book)
	}
	if opts.SQLitePath != "" {
		if err := WriteSQLite(t, opts.SQLitePath, name); err != nil {
			return written, err
		}
		written = append(written, opts.SQLitePath)
	}
	return written, nil
}

// Stem is the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteXLSX saves t as a single-sheet workbook. Numeric cells are stored as
// numbers, everything else as text.
func WriteXLSX(t *Table, path, sheet string) error {
	sheet = sheetName(sheet)
	x := excelize.NewFile()
	defer x.Close()

	idx, err := x.NewSheet(sheet)
	if err != nil {
		return err
	}
	put := func(r int, row []string) error {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if f, ok := number(v); ok && r > 0 {
				err = x.SetCellFloat(sheet, cell, f, -1, 64)
			} else {
				err = x.SetCellStr(sheet, cell, v)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := put(0, t.Header); err != nil {
		return err
	}
	for r, row := range t.Rows {
		if err := put(r+1, row); err != nil {
			return err
		}
	}
	x.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := x.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	if err := x.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// sheetName trims name to the 31 characters a worksheet allows and replaces
// the characters excel rejects.
func sheetName(name string) string {
	name = strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_").Replace(name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		name = "Sheet1"
	}
	return name
}

// WriteSQLite replaces table name in the database at dbPath with the
// contents of t. Every column is TEXT.
func WriteSQLite(t *Table, dbPath, name string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	cols := make([]string, len(t.Header))
	marks := make([]string, len(t.Header))
	for i, h := range t.Header {
		cols[i] = quoteIdent(h) + " TEXT"
		marks[i] = "?"
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS " + quoteIdent(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(t.Header))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
