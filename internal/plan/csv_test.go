package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVDataSource(t *testing.T) {
	content := "u,p\na,1\nb,2\nc,3\n"
	ds, err := ParseCSVDataSource("creds", content, ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"u", "p"}, ds.Columns)
	assert.Len(t, ds.Rows, 3)
}

func TestParseCSVDataSourceEmptyHeaderRow(t *testing.T) {
	_, err := ParseCSVDataSource("empty", "", ',')
	assert.Error(t, err)
}

func TestParseCSVDataSourceNoDataRows(t *testing.T) {
	_, err := ParseCSVDataSource("headeronly", "u,p\n", ',')
	assert.Error(t, err)
}

func TestNextRowRecyclesModuloRowCount(t *testing.T) {
	ds, err := ParseCSVDataSource("creds", "u,p\na,1\nb,2\nc,3\n", ',')
	require.NoError(t, err)
	ds.Recycle = true

	var got []string
	for i := 0; i < 4; i++ {
		row, ok := ds.NextRow()
		require.True(t, ok)
		got = append(got, row["u"])
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestNextRowSkipsPastEndWithoutRecycle(t *testing.T) {
	ds, err := ParseCSVDataSource("creds", "u,p\na,1\nb,2\n", ',')
	require.NoError(t, err)
	ds.Recycle = false

	row, ok := ds.NextRow()
	require.True(t, ok)
	assert.Equal(t, "a", row["u"])

	row, ok = ds.NextRow()
	require.True(t, ok)
	assert.Equal(t, "b", row["u"])

	_, ok = ds.NextRow()
	assert.False(t, ok, "third row should be skipped once recycle=false exhausts the data")
}

func TestNewThreadGroupAndHttpRequestDefaults(t *testing.T) {
	tg := NewThreadGroup("load", 5, 10)
	assert.True(t, tg.Enabled)
	assert.Equal(t, FiniteLoop{Count: 1}, tg.LoopPolicy)

	req := NewHttpRequest("ping", MethodGet, "http://stub/ok")
	assert.True(t, req.Enabled)
}

func TestEnabledThreadGroupsAndRequestsFilter(t *testing.T) {
	p := NewTestPlan("demo")
	enabled := NewThreadGroup("a", 1, 0)
	disabled := NewThreadGroup("b", 1, 0)
	disabled.Enabled = false
	p.ThreadGroups = []*ThreadGroup{enabled, disabled}

	assert.Equal(t, []*ThreadGroup{enabled}, p.EnabledThreadGroups())

	r1 := NewHttpRequest("one", MethodGet, "http://stub/1")
	r2 := NewHttpRequest("two", MethodGet, "http://stub/2")
	r2.Enabled = false
	enabled.Requests = []*HttpRequest{r1, r2}

	assert.Equal(t, []*HttpRequest{r1}, enabled.EnabledRequests())
}
