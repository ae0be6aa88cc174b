package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/adapter/http/dto"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

func newAPI(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLedgerConsistency(t *testing.T) {
	srv, got := newAPI(t, http.StatusOK, `{"total_debit":"150","total_credit":"150","unbalanced":[],"consistent":true}`)

	out, err := execute(t, "--url", srv.URL, "--token", "tok", "ledger", "consistency")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/ledger/consistency", got.Path)
	assert.Equal(t, "Bearer tok", got.Auth)
	assert.Contains(t, out, "Total debit:  150")
	assert.Contains(t, out, "Consistency check PASSED")
}

func TestLedgerConsistencyFailed(t *testing.T) {
	srv, _ := newAPI(t, http.StatusOK, `{"total_debit":"150","total_credit":"100","unbalanced":[{"entry_id":"e1"}],"consistent":false}`)

	out, err := execute(t, "--url", srv.URL, "ledger", "consistency")
	require.Error(t, err)
	assert.Contains(t, out, "FAILED: 1 unbalanced entries")
}

func TestAPIErrorStatus(t *testing.T) {
	srv, _ := newAPI(t, http.StatusForbidden, `{"error":"forbidden"}`)

	_, err := execute(t, "--url", srv.URL, "closing", "status", "2025")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Contains(t, err.Error(), "status 403")
}

func TestAccountsImportYAML(t *testing.T) {
	srv, got := newAPI(t, http.StatusOK, `{"created":2}`)

	path := writeFile(t, "chart.yaml", `
accounts:
  - code: "1000"
    name: Assets
    type: asset
    is_postable: false
  - code: "1100"
    name: Cash
    type: asset
    parent_code: "1000"
    cash_flow_activity: cash
`)

	out, err := execute(t, "--url", srv.URL, "accounts", "import", path, "--mode", "insert_only")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/accounts/import", got.Path)
	assert.Equal(t, "mode=insert_only", got.Query)

	var sent dto.ImportAccountsRequest
	require.NoError(t, json.Unmarshal([]byte(got.Body), &sent))
	require.Len(t, sent.Accounts, 2)
	assert.Equal(t, "1000", sent.Accounts[1].ParentCode)
	require.NotNil(t, sent.Accounts[0].IsPostable)
	assert.False(t, *sent.Accounts[0].IsPostable)

	assert.Equal(t, "{\n  \"created\": 2\n}\n", out)
}

func TestPartnersImportJSON(t *testing.T) {
	srv, got := newAPI(t, http.StatusOK, `{}`)

	path := writeFile(t, "partners.json", `{"partners":[{"code":"C1","name":"Acme","category":"customer","normal_balance":"debit"}]}`)

	_, err := execute(t, "--url", srv.URL, "partners", "import", path)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/partners/import", got.Path)
	assert.Equal(t, "mode=upsert", got.Query)
	assert.Contains(t, got.Body, `"code":"C1"`)
}

func TestImportRejectsMalformedFile(t *testing.T) {
	path := writeFile(t, "chart.json", `{"accounts":`)

	_, err := execute(t, "accounts", "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestClosingRun(t *testing.T) {
	srv, got := newAPI(t, http.StatusCreated, `{"id":"closing-1"}`)

	_, err := execute(t, "--url", srv.URL, "closing", "run", "2025",
		"--retained-earnings", "acc-re", "--opening", "--memo", "FY2025")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/closing/2025", got.Path)

	var sent dto.YearEndClosingRequest
	require.NoError(t, json.Unmarshal([]byte(got.Body), &sent))
	assert.Equal(t, "acc-re", sent.RetainedEarningsAccountID)
	assert.True(t, sent.GenerateOpening)
	require.NotNil(t, sent.Memo)
	assert.Equal(t, "FY2025", *sent.Memo)
	assert.Nil(t, sent.Date)
}

func TestClosingRunRequiresRetainedEarnings(t *testing.T) {
	_, err := execute(t, "closing", "run", "2025")
	require.Error(t, err)
}

func TestClosingInvalidYear(t *testing.T) {
	_, err := execute(t, "closing", "status", "twenty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid year "twenty"`)
}

func TestReport(t *testing.T) {
	srv, got := newAPI(t, http.StatusOK, `{"rows":[]}`)

	_, err := execute(t, "--url", srv.URL, "report", "trial-balance",
		"--from", "2025-01-01", "--to", "2025-03-31", "--param", "grouping=hierarchy")
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/reports/trial-balance", got.Path)
	assert.Equal(t, "from=2025-01-01&grouping=hierarchy&to=2025-03-31", got.Query)
}

func TestReportRejectsUnknownName(t *testing.T) {
	_, err := execute(t, "report", "profit-and-loss")
	require.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, []byte(`{"a":1}`)))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, printJSON(&buf, []byte("plain text")))
	assert.Equal(t, "plain text", buf.String())
}
