package export

import (
	"bytes"
	"testing"

	"github.com/markwinap/t3-antd-postgress-template/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestUsersXLSX(t *testing.T) {
	data, err := UsersXLSX([]models.User{
		{ID: "usr-001", Name: "Alice", Email: "alice@example.com"},
		{ID: "usr-002", Name: "Ann"},
	})
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "email"}, rows[0])
	assert.Equal(t, []string{"usr-001", "Alice", "alice@example.com"}, rows[1])
	// GetRows trims trailing empty cells.
	assert.Equal(t, []string{"usr-002", "Ann"}, rows[2])
}

func TestUsersXLSXEmpty(t *testing.T) {
	data, err := UsersXLSX(nil)
	require.NoError(t, err)

	rows := readRows(t, data)
	assert.Equal(t, [][]string{{"id", "name", "email"}}, rows)
}
