package table

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func mustRead(t *testing.T, csv string) *Table {
	t.Helper()
	tb, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	return tb
}

func TestReadPadsShortRows(t *testing.T) {
	tb := mustRead(t, "\ufeffa,b,c\n1,2,3\n4,5\n")
	assert.Equal(t, []string{"a", "b", "c"}, tb.Header)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "5", ""}}, tb.Rows)
}

func TestReadRejectsWideRows(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDropIgnoresAbsentColumns(t *testing.T) {
	tb := mustRead(t, "a,b,c\n1,2,3\n")
	out := tb.Drop("b", "zzz")
	assert.Equal(t, []string{"a", "c"}, out.Header)
	assert.Equal(t, [][]string{{"1", "3"}}, out.Rows)
	// original untouched
	assert.Equal(t, []string{"a", "b", "c"}, tb.Header)
	assert.Same(t, tb, tb.Drop("zzz"))
}

func TestRename(t *testing.T) {
	tb := mustRead(t, "Unnamed: 0,x\n1,2\n")
	assert.True(t, tb.Rename("Unnamed: 0", "time"))
	assert.False(t, tb.Rename("Unnamed: 0", "time"))
	assert.Equal(t, []string{"time", "x"}, tb.Header)
}

func TestProbe(t *testing.T) {
	tb := mustRead(t, "gpi_ascat,lon\n1,2\n")
	s, err := Probe(tb, "gpi_ascat")
	require.NoError(t, err)
	assert.True(t, s.Has("lon"))
	assert.False(t, s.Has("lat"))
	assert.Equal(t, 1, s.Index("lon"))
	assert.Equal(t, -1, s.Index("lat"))

	_, err = Probe(tb, "lat")
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), `"lat"`)
}

func TestKeyAndEqual(t *testing.T) {
	assert.Equal(t, Key("1"), Key(" 1.0 "))
	assert.NotEqual(t, Key("1"), Key("10"))
	assert.Equal(t, "abc", Key("abc"))

	assert.True(t, Equal("5", "5.0"))
	assert.False(t, Equal("5", "3"))
	assert.True(t, Equal("clay", "clay"))
	assert.False(t, Equal("", ""))
}

func TestMissingValues(t *testing.T) {
	for _, v := range []string{"", " ", "NaN", "nan", "NA", "N/A", "null", "NULL", "None", "<NA>", "#N/A"} {
		assert.True(t, Missing(v), "%q", v)
		assert.False(t, Equal(v, v), "%q", v)
		assert.Empty(t, Key(v), "%q", v)
	}
	assert.False(t, Missing("0"))
	assert.False(t, Missing("none"))
}

func TestKeyLargeIntegers(t *testing.T) {
	assert.NotEqual(t, Key("9007199254740993"), Key("9007199254740992"))
	assert.Equal(t, "9007199254740993", Key(" 9007199254740993 "))
	assert.False(t, Equal("9007199254740993", "9007199254740992"))
	assert.True(t, Equal("9007199254740993", "9007199254740993"))

	k := []string{"9007199254740993", "9007199254740992", "3"}
	SortKeys(k)
	assert.Equal(t, []string{"3", "9007199254740992", "9007199254740993"}, k)
}

func TestInnerJoinLargeIntegerKeys(t *testing.T) {
	left := mustRead(t, "gpi_ascat,a\n9007199254740993,l\n")
	right := mustRead(t, "gpi_ascat,b\n9007199254740992,r\n")

	out, err := InnerJoin(left, right, JoinOptions{On: GPIKey, Duplicates: FailOnDuplicate})
	require.NoError(t, err)
	assert.Zero(t, out.Len())

	right = mustRead(t, "gpi_ascat,b\n9007199254740992,r1\n9007199254740993,r2\n")
	_, err = InnerJoin(right, right, JoinOptions{On: GPIKey, Duplicates: FailOnDuplicate})
	require.NoError(t, err)
}

func TestSortKeys(t *testing.T) {
	k := []string{"10", "9", "2.5"}
	SortKeys(k)
	assert.Equal(t, []string{"2.5", "9", "10"}, k)

	k = []string{"b", "10", "a"}
	SortKeys(k)
	assert.Equal(t, []string{"10", "a", "b"}, k)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "50.0", FormatFloat(50))
	assert.Equal(t, "0.0", FormatFloat(0))
	assert.Equal(t, "33.333333333333336", FormatFloat(100.0/3))
}

func TestInnerJoin(t *testing.T) {
	left := mustRead(t, "gpi_ascat,soil_cat,lon\n1,X,10\n2,Y,11\n3,Z,12\n")
	right := mustRead(t, "gpi_ascat,lon,target\n3,99,a\n1.0,98,b\n4,97,c\n1,96,d\n")

	out, err := InnerJoin(left, right, JoinOptions{On: GPIKey})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpi_ascat", "soil_cat", "lon_x", "lon_y", "target"}, out.Header)
	assert.Equal(t, [][]string{
		{"1", "X", "10", "98", "b"},
		{"1", "X", "10", "96", "d"},
		{"3", "Z", "12", "99", "a"},
	}, out.Rows)
}

func TestInnerJoinSkipsEmptyKeys(t *testing.T) {
	left := mustRead(t, "gpi_ascat,a\n,1\n")
	right := mustRead(t, "gpi_ascat,b\n,2\n")
	out, err := InnerJoin(left, right, JoinOptions{On: GPIKey})
	require.NoError(t, err)
	assert.Zero(t, out.Len())
}

func TestInnerJoinDuplicates(t *testing.T) {
	left := mustRead(t, "gpi_ascat,a\n1,l1\n1,l2\n")
	right := mustRead(t, "gpi_ascat,b\n1,r1\n1,r2\n")

	out, err := InnerJoin(left, right, JoinOptions{On: GPIKey, Duplicates: AllowCrossProduct})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())

	_, err = InnerJoin(left, right, JoinOptions{On: GPIKey, Duplicates: FailOnDuplicate})
	require.ErrorIs(t, err, ErrDuplicateKey)
	assert.Contains(t, err.Error(), "left")
}

func TestInnerJoinMissingKey(t *testing.T) {
	left := mustRead(t, "id,a\n1,2\n")
	right := mustRead(t, "gpi_ascat,b\n1,2\n")
	_, err := InnerJoin(left, right, JoinOptions{On: GPIKey})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseDuplicateKeys(t *testing.T) {
	d, err := ParseDuplicateKeys("")
	require.NoError(t, err)
	assert.Equal(t, AllowCrossProduct, d)

	d, err = ParseDuplicateKeys("FAIL")
	require.NoError(t, err)
	assert.Equal(t, FailOnDuplicate, d)
	assert.Equal(t, "fail", d.String())

	_, err = ParseDuplicateKeys("maybe")
	assert.Error(t, err)
}

func TestSaveWithExports(t *testing.T) {
	dir := t.TempDir()
	tb := mustRead(t, "gpi_ascat,soil_cat,percentage_match\n1,X,50.0\n2,Y,100.0\n")
	out := filepath.Join(dir, "ascat_diff_diff.csv")
	db := filepath.Join(dir, "out.db")

	written, err := Save(tb, out, ExportOptions{XLSX: true, SQLitePath: db})
	require.NoError(t, err)
	assert.Equal(t, []string{out, filepath.Join(dir, "ascat_diff_diff.xlsx"), db}, written)

	back, err := ReadCSV(out)
	require.NoError(t, err)
	assert.Equal(t, tb, back)

	x, err := excelize.OpenFile(filepath.Join(dir, "ascat_diff_diff.xlsx"))
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows("ascat_diff_diff")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"gpi_ascat", "soil_cat", "percentage_match"},
		{"1", "X", "50"},
		{"2", "Y", "100"},
	}, rows)

	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	defer conn.Close()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM "ascat_diff_diff"`).Scan(&n))
	assert.Equal(t, 2, n)
	var cat string
	require.NoError(t, conn.QueryRow(`SELECT soil_cat FROM "ascat_diff_diff" WHERE gpi_ascat = '2'`).Scan(&cat))
	assert.Equal(t, "Y", cat)

	// a second save replaces the table instead of appending
	_, err = Save(tb, out, ExportOptions{SQLitePath: db})
	require.NoError(t, err)
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM "ascat_diff_diff"`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b", sheetName("a/b"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), 31)
	assert.Equal(t, "Sheet1", sheetName(""))
}
