package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/extractor"
	httpserver "github.com/fyrsmithlabs/actionitems/internal/http"
)

// ExampleServer posts a transcript to the extract endpoint in process.
func ExampleServer() {
	ex, err := extractor.New(extractor.DefaultOptions(), extractor.Dependencies{}, zap.NewNop())
	if err != nil {
		panic(err)
	}
	server, err := httpserver.NewServer(ex, zap.NewNop(), nil)
	if err != nil {
		panic(err)
	}

	body := `{"transcript": [
		{"speaker": "Speaker_01", "text": "John, can you prepare the report by next Monday?"},
		{"speaker": "Speaker_02", "text": "Sure, I will do it."}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract?reference_date=2025-11-05", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var resp httpserver.ExtractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		panic(err)
	}
	fmt.Println(rec.Code, resp.Status, resp.ActionItems[0].Assignee)
	// Output: 200 success John
}
