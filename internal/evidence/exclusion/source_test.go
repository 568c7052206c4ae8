package exclusion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/evidence/providers"
)

const leieSample = `LASTNAME,FIRSTNAME,MIDNAME,BUSNAME,GENERAL,SPECIALTY,UPIN,NPI,DOB,ADDRESS,CITY,STATE,ZIP,EXCLTYPE,EXCLDATE,REINDATE,WAIVERDATE,WVRSTATE
ROE,JANE,Q,,IND- LIC HC SERV PRO,COUNSELOR,,0000000000,19800101,1 MAIN ST,PORTLAND,OR,97201,1128b4,20200115,00000000,00000000,
,,,NORTH CLINIC LLC,BUSINESS,CLINIC,,1245319599,,2 ELM ST,SALEM,OR,97301,1128a1,20190301,00000000,00000000,
`

func TestParseLEIE(t *testing.T) {
	entries, err := ParseLEIE(strings.NewReader(leieSample))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "JANE Q ROE", entries[0].Name)
	assert.Equal(t, []string{"JANE ROE"}, entries[0].Aliases)
	assert.Empty(t, entries[0].NPI, "all-zero placeholder NPI is dropped")
	assert.Equal(t, "leie-2-20200115", entries[0].ID)

	assert.Equal(t, "NORTH CLINIC LLC", entries[1].Name)
	assert.Equal(t, "1245319599", entries[1].NPI)
}

func TestParseLEIERejectsUnknownLayout(t *testing.T) {
	_, err := ParseLEIE(strings.NewReader("A,B,C\n1,2,3\n"))
	assert.ErrorContains(t, err, "missing column")
}

func TestListSourceQuery(t *testing.T) {
	entries, err := ParseLEIE(strings.NewReader(leieSample))
	require.NoError(t, err)
	src := NewListSource("leie", entries)
	ctx := context.Background()

	got, err := src.Query(ctx, Query{Name: "Jane Roe"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = src.Query(ctx, Query{NPI: "1245319599"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = src.Query(ctx, Query{Name: "John Roe", NPI: "1003000126"})
	require.NoError(t, err)
	assert.Empty(t, got)

	src.Replace(nil)
	got, err = src.Query(ctx, Query{Name: "Jane Roe"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTTPSource(t *testing.T) {
	t.Run("decodes entries and forwards query", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Jane Roe", r.URL.Query().Get("name"))
			assert.Equal(t, "1003000126", r.URL.Query().Get("npi"))
			assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
			_, _ = w.Write([]byte(`{"entries":[{"id":"S-1","name":"JANE ROE"}]}`))
		}))
		defer srv.Close()

		src := NewHTTPSource("sam", srv.URL, "secret", time.Second)
		got, err := src.Query(context.Background(), Query{Name: "Jane Roe", NPI: "1003000126"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "S-1", got[0].ID)
	})

	t.Run("outage is retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPSource("oig", srv.URL, "", time.Second).Query(context.Background(), Query{Name: "x"})
		assert.True(t, providers.IsRetryable(err))
	})
}
