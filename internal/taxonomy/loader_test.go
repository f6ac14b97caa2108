package taxonomy

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/tally/internal/core/domain"
)

func groupsOf(t *testing.T, tax *domain.Taxonomy) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	for _, g := range tax.Groups() {
		out[g.ID] = g.Variants
	}
	return out
}

func TestLoad_CSV(t *testing.T) {
	tests := []struct {
		name string
		data string
		want map[string][]string
	}{
		{
			name: "header and quoted lists",
			data: "Group,Keywords\nesg,\"green bond, sustainable finance\"\nfin,\"bond fund\"\n",
			want: map[string][]string{"esg": {"green bond", "sustainable finance"}, "fin": {"bond fund"}},
		},
		{
			name: "no header, unquoted list spills into columns",
			data: "esg,green bond,ESG\nfin,bond\n",
			want: map[string][]string{"esg": {"green bond", "ESG"}, "fin": {"bond"}},
		},
		{
			name: "header, unquoted list spills into columns",
			data: "group,keywords\nesg,green bond,bond fund\nfin,bond fund\n",
			want: map[string][]string{"esg": {"green bond", "bond fund"}, "fin": {"bond fund"}},
		},
		{
			name: "semicolon delimiter",
			data: "Group;Keywords\n1;Việt Nam, VietQR\n2;ngân hàng\n",
			want: map[string][]string{"1": {"Việt Nam", "VietQR"}, "2": {"ngân hàng"}},
		},
		{
			name: "header columns in any order with BOM and blank rows",
			data: "\xef\xbb\xbfKeywords,Group\n\"a, b\",g1\n,\n\"c\",g2\n",
			want: map[string][]string{"g1": {"a", "b"}, "g2": {"c"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, err := New().Load("kw.csv", []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, groupsOf(t, tax))
		})
	}
}

func TestLoad_CSVKeepsOrder(t *testing.T) {
	tax, err := New().Load("kw.CSV", []byte("z,one\na,two\nm,three\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, tax.GroupIDs())
}

func TestLoad_Text(t *testing.T) {
	data := `# ESG keywords
esg | green bond, sustainable finance
fin|bond fund

loose keyword
another one
`
	tax, err := New().Load("kw.txt", []byte(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"esg", "fin", DefaultGroup}, tax.GroupIDs())
	assert.Equal(t, map[string][]string{
		"esg":        {"green bond", "sustainable finance"},
		"fin":        {"bond fund"},
		DefaultGroup: {"loose keyword", "another one"},
	}, groupsOf(t, tax))
}

func TestLoad_MarkdownTable(t *testing.T) {
	data := `| Group | Keywords |
|-------|----------|
| esg   | green bond, ESG |
| fin   | bond |
`
	tax, err := New().Load("kw.md", []byte(data))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"esg": {"green bond", "ESG"}, "fin": {"bond"}}, groupsOf(t, tax))
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Group", "Keywords"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"esg", "green bond, climate"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{3, "bond"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tax, err := New().Load("keywords.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"esg": {"green bond", "climate"}, "3": {"bond"}}, groupsOf(t, tax))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"duplicate group", "kw.csv", "esg,a\nesg,b\n"},
		{"empty variants", "kw.csv", "esg,\" , \"\n"},
		{"missing column", "kw.csv", "Group,Keywords\nesg\n"},
		{"empty group id", "kw.txt", "esg | a\n| | b |\n"},
		{"no groups", "kw.txt", "# only a comment\n"},
		{"unknown format", "kw.json", "{}"},
		{"broken workbook", "kw.xlsx", "not a zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Load(tt.file, []byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrTaxonomyInvalid)
		})
	}
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/keywords.txt", []byte("esg | green bond\n"), 0o644))

	tax, err := New().LoadFile(fs, "/cfg/keywords.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, tax.Len())

	_, err = New().LoadFile(fs, "/cfg/missing.csv")
	assert.ErrorIs(t, err, domain.ErrTaxonomyInvalid)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b\nc,d")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b\nc;d")))
	assert.Equal(t, ',', sniffDelimiter(bytes.Repeat([]byte("x"), 3)))
}
