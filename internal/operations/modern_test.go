package operations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dvloznov/agricole-sync/internal/domain"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/dvloznov/agricole-sync/internal/portal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modernAccount = &domain.Account{
	Number: "123",
	Label:  "Compte de dépôt",
	Portal: domain.PortalData{Category: "1", Contract: "C-123", Currency: "EUR"},
}

func TestFetchModernOperations_Pagination(t *testing.T) {
	var queries []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+OperationsPath, r.URL.Path)
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		queries = append(queries, q)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("startIndex") == "" {
			w.Write([]byte(`{"hasNext": true, "nextSetStartIndex": "cursor-2", "listeOperations": [
				{"montant": -12.5, "dateValeur": 1709247600000, "dateOperation": 1709161200000, "libelleOperation": " CB BOULANGERIE "},
				{"montant": 1000, "dateValeur": 1709247600000, "dateOperation": 1709247600000, "libelleOperation": "VIR SALAIRE"}
			]}`))
			return
		}
		w.Write([]byte(`{"hasNext": false, "nextSetStartIndex": null, "listeOperations": [
			{"montant": -3.2, "dateValeur": "2024-02-28T00:00:00.000+0100", "dateOperation": "2024-02-28", "libelleOperation": "PRLV EDF"}
		]}`))
	}))
	defer srv.Close()

	client, err := portal.New()
	require.NoError(t, err)

	raw, err := FetchModernOperations(logger.Nop(context.Background()), client, srv.URL, modernAccount)
	require.NoError(t, err)

	require.Len(t, queries, 2)
	assert.Equal(t, map[string]string{
		"compteIdx": "0", "grandeFamilleCode": "1", "idElementContrat": "C-123", "idDevise": "EUR", "count": "100",
	}, queries[0])
	assert.Equal(t, "cursor-2", queries[1]["startIndex"])

	require.Len(t, raw, 3)
	assert.Equal(t, " CB BOULANGERIE ", raw[0].LibelleOperation)
	assert.Equal(t, "VIR SALAIRE", raw[1].LibelleOperation)
	assert.Equal(t, "PRLV EDF", raw[2].LibelleOperation)
}

func TestFetchModernOperations_StalledCursor(t *testing.T) {
	tests := []struct {
		name string
		body func(startIndex string) string
	}{
		{"missing cursor", func(string) string {
			return `{"hasNext": true, "listeOperations": []}`
		}},
		{"repeated cursor", func(string) string {
			return `{"hasNext": true, "nextSetStartIndex": "cursor-2", "listeOperations": []}`
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body(r.URL.Query().Get("startIndex"))))
			}))
			defer srv.Close()

			client, err := portal.New()
			require.NoError(t, err)

			_, err = FetchModernOperations(logger.Nop(context.Background()), client, srv.URL, modernAccount)
			assert.ErrorIs(t, err, domain.ErrUnparseable)
			assert.LessOrEqual(t, calls, 2)
		})
	}
}

func TestParseModernOperations(t *testing.T) {
	var raw []ModernOperation
	require.NoError(t, json.Unmarshal([]byte(`[
		{"montant": -12.5, "dateValeur": 1709247600000, "dateOperation": 1709161200000, "libelleOperation": " CB BOULANGERIE ", "idDevise": "USD"},
		{"montant": "7.10", "dateValeur": "2024-03-01", "libelleOperation": "REMISE"}
	]`), &raw))

	txs := ParseModernOperations(modernAccount, raw, testNow)
	require.Len(t, txs, 2)

	assert.True(t, decimal.RequireFromString("-12.5").Equal(txs[0].Amount))
	assert.Equal(t, "CB BOULANGERIE", txs[0].Label)
	assert.Equal(t, "EUR", txs[0].Currency)
	assert.True(t, day(2024, time.March, 1).Equal(txs[0].Date), "got %s", txs[0].Date)
	assert.True(t, day(2024, time.February, 29).Equal(txs[0].DateOperation), "got %s", txs[0].DateOperation)

	assert.True(t, day(2024, time.March, 1).Equal(txs[1].DateOperation))

	noCurrency := &domain.Account{Number: "9"}
	assert.Equal(t, "USD", ParseModernOperations(noCurrency, raw, testNow)[0].Currency)
}

func TestPortalTime_Invalid(t *testing.T) {
	var v struct {
		T PortalTime `json:"t"`
	}
	assert.Error(t, json.Unmarshal([]byte(`{"t": "yesterday"}`), &v))
	require.NoError(t, json.Unmarshal([]byte(`{"t": null}`), &v))
	assert.True(t, v.T.IsZero())
}

func TestIngester_ModernSameDayIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hasNext": false, "listeOperations": [
			{"montant": -1, "dateValeur": "2024-03-01", "dateOperation": "2024-03-01", "libelleOperation": "A"},
			{"montant": -2, "dateValeur": "2024-03-01", "dateOperation": "2024-03-01", "libelleOperation": "B"}
		]}`))
	}))
	defer srv.Close()

	client, err := portal.New()
	require.NoError(t, err)
	session := &portal.Session{Client: client, BankURL: srv.URL, Generation: &portal.Modern{BankURL: srv.URL}}

	in := NewIngester("fr")
	in.Now = func() time.Time { return testNow }

	txs, err := in.Sync(logger.Nop(context.Background()), session, modernAccount)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "123_2024-03-01_0", txs[0].VendorID)
	assert.Equal(t, "123_2024-03-01_1", txs[1].VendorID)
}

func TestIngester_LegacyExport(t *testing.T) {
	export := "ID;PWXL;N;E\n"
	for row := 1; row <= legacyHeaderRows; row++ {
		export += "C;Y" + strconv.Itoa(row) + ";X1;K\"header\"\n"
	}
	export += "C;Y10;X1;K\"05-d\xe9c\"\nC;X2;K\"LABEL A\"\nC;X3;K\"12,34 \"\n" +
		"C;Y11;X1;K\"05-dec\"\nC;X2;K\"LABEL B\"\nC;X4;K\"100,00\"\nE\n"

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.RequestURI()
		w.Write([]byte(export))
	}))
	defer srv.Close()

	client, err := portal.New()
	require.NoError(t, err)
	session := &portal.Session{Client: client, Generation: &portal.Legacy{BaseURL: srv.URL}}
	account := &domain.Account{Number: "555", Portal: domain.PortalData{OperationsLink: "entreeBam?act=Telech&idx=1"}}

	in := NewIngester("fr")
	in.Now = func() time.Time { return testNow }

	txs, err := in.Sync(logger.Nop(context.Background()), session, account)
	require.NoError(t, err)

	assert.Equal(t, "/stb/entreeBam?act=Telech&idx=1&typeaction=telechargement", requested)
	require.Len(t, txs, 2)
	assert.True(t, decimal.RequireFromString("-12.34").Equal(txs[0].Amount))
	assert.Equal(t, "555_2024-12-05_0", txs[0].VendorID)
	assert.Equal(t, "555_2024-12-05_1", txs[1].VendorID)
	assert.True(t, decimal.RequireFromString("100").Equal(txs[1].Amount))
}

func TestIngester_LegacyDatesFollowIngesterClock(t *testing.T) {
	export := "ID;PWXL;N;E\n"
	for row := 1; row <= legacyHeaderRows; row++ {
		export += "C;Y" + strconv.Itoa(row) + ";X1;K\"header\"\n"
	}
	export += "C;Y10;X1;K\"05-dec\"\nC;X2;K\"LABEL\"\nC;X3;K\"1,00\"\nE\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(export))
	}))
	defer srv.Close()

	client, err := portal.New()
	require.NoError(t, err)
	session := &portal.Session{Client: client, Generation: &portal.Legacy{BaseURL: srv.URL}}
	account := &domain.Account{Number: "555", Portal: domain.PortalData{OperationsLink: "entreeBam?act=Telech&idx=1"}}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"same year", time.Date(2025, time.December, 20, 9, 0, 0, 0, ParisLocation()), "555_2025-12-05_0"},
		{"previous year", time.Date(2025, time.November, 30, 9, 0, 0, 0, ParisLocation()), "555_2024-12-05_0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIngester("fr")
			in.Now = func() time.Time { return tt.now }

			txs, err := in.Sync(logger.Nop(context.Background()), session, account)
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, tt.want, txs[0].VendorID)
			assert.Equal(t, tt.now, txs[0].DateImport)
		})
	}
}

func TestIngester_LegacyWithoutLink(t *testing.T) {
	session := &portal.Session{Generation: &portal.Legacy{BaseURL: "http://unused"}}
	_, err := NewIngester("fr").Sync(logger.Nop(context.Background()), session, &domain.Account{Number: "1"})
	assert.Error(t, err)
}
