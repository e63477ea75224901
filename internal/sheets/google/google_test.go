package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dompet/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the handful of Sheets endpoints the exporter calls and
// keeps column A of a single sheet.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	appends int
	updates []string
	deletes int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"values": f.rows})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		start := len(f.rows) + 1
		f.rows = append(f.rows, vr.Values...)
		f.appends++
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": fmt.Sprintf("Transaksi!A%d:I%d", start, len(f.rows))},
		})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		var n int
		fmt.Sscanf(rng[strings.Index(rng, "!")+1:], "A%d", &n)
		f.rows[n-1] = vr.Values[0]
		f.updates = append(f.updates, rng)
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		rng := req.Requests[0].DeleteDimension.Range
		f.rows = append(f.rows[:rng.StartIndex], f.rows[rng.EndIndex:]...)
		f.deletes++
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{
				map[string]any{"properties": map[string]any{"sheetId": 1, "title": "Lain"}},
				map[string]any{"properties": map[string]any{"sheetId": 7, "title": "Transaksi"}},
			},
		})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheets) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.rows))
	for i, r := range f.rows {
		out[i] = fmt.Sprint(r[0])
	}
	return out
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sid"}), fake
}

func tx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID: id, UserID: "u1", AccountID: "a1", Kind: core.KindExpense,
		Amount: core.Cents(cents), Merchant: "Starbucks", Date: core.NewDate(2025, 3, 10),
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, tx("t1", 2500000))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if ref != "Transaksi!A1:I2" {
		t.Errorf("ref = %q", ref)
	}
	if _, err := c.Upsert(ctx, tx("t2", 100)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,t1,t2" {
		t.Fatalf("column A = %s, want ID,t1,t2", got)
	}

	ref, err = c.Upsert(ctx, tx("t1", 3000000))
	if err != nil {
		t.Fatalf("Upsert existing: %v", err)
	}
	if ref != "Transaksi!A2:I2" || fake.appends != 2 || len(fake.updates) != 1 {
		t.Fatalf("ref = %q, appends = %d, updates = %v", ref, fake.appends, fake.updates)
	}
	if amount := fake.rows[1][3]; amount != "30000.00" {
		t.Errorf("updated amount = %v, want 30000.00", amount)
	}
}

func TestClient_Remove(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, err := c.Upsert(ctx, tx(id, 100)); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}

	if err := c.Remove(ctx, "t2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,t1,t3" {
		t.Fatalf("column A = %s, want ID,t1,t3", got)
	}
	if c.sheetID == nil || *c.sheetID != 7 {
		t.Errorf("sheet id = %v, want 7", c.sheetID)
	}

	if err := c.Remove(ctx, "missing"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
	if fake.deletes != 1 {
		t.Errorf("deletes = %d, want 1", fake.deletes)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing spreadsheet", Config{}, "spreadsheet id is empty"},
		{"missing credentials", Config{SpreadsheetID: "sid"}, "no service account key"},
		{"unreadable file", Config{SpreadsheetID: "sid", CredentialsFile: "/nonexistent/sa.json"}, "service account key /nonexistent/sa.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("New() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestNewClient_DefaultSheetName(t *testing.T) {
	if c := newClient(nil, Config{SpreadsheetID: " sid "}); c.sheet != DefaultSheetName || c.spreadsheetID != "sid" {
		t.Errorf("client = %+v", c)
	}
}

func TestCredentialsPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	env := filepath.Join(dir, "env.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env, []byte(`{"from":"env"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", env)

	tests := []struct {
		cfg    Config
		source string
		key    string
	}{
		{Config{CredentialsJSON: ` {"from":"inline"} `, CredentialsFile: file}, "inline", `{"from":"inline"}`},
		{Config{CredentialsFile: file}, file, `{"from":"file"}`},
		{Config{}, env, `{"from":"env"}`},
	}
	for _, tt := range tests {
		key, source, err := credentials(tt.cfg)
		if err != nil {
			t.Fatalf("credentials(%+v): %v", tt.cfg, err)
		}
		if source != tt.source || string(key) != tt.key {
			t.Errorf("credentials(%+v) = %s from %s", tt.cfg, key, source)
		}
	}
}
