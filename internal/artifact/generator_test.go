package artifact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.DocumentNumber == "EMPTY" {
			w.Write([]byte(`{}`))
			return
		}
		json.NewEncoder(w).Encode(Result{URI: "blob://" + req.DocumentNumber + ".pdf"})
	}))
	defer srv.Close()

	c := NewClient(config.ServiceIntegration{BaseURL: srv.URL})
	res, err := c.Generate(context.Background(), Request{DocumentNumber: "DOC-1"})
	require.NoError(t, err)
	assert.Equal(t, "blob://DOC-1.pdf", res.URI)

	_, err = c.Generate(context.Background(), Request{DocumentNumber: "EMPTY"})
	assert.Error(t, err)
}
