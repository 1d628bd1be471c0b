package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mise/internal/core/id"
	"mise/internal/infrastructure/storage/postgres"
)

type stubJournal struct {
	entries  []postgres.JournalEntry
	gotID    id.ID
	gotLimit int
}

func (s *stubJournal) History(_ context.Context, movementID id.ID, limit int) ([]postgres.JournalEntry, error) {
	s.gotID = movementID
	s.gotLimit = limit
	return s.entries, nil
}

func TestLedgerHandler_Journal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	movementID := id.New()
	stub := &stubJournal{entries: []postgres.JournalEntry{{
		ID:         id.New(),
		MovementID: movementID,
		Number:     "MOV-2026-00042",
		Reason:     "SALE",
		Payload:    json.RawMessage(`{"number":"MOV-2026-00042"}`),
		CreatedAt:  time.Now().UTC(),
	}}}

	h := NewLedgerHandler(NewBaseHandler(), nil, stub)

	router := gin.New()
	router.GET("/movements/:id/journal", h.Journal)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/movements/"+movementID.String()+"/journal", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, movementID, stub.gotID)
	assert.Equal(t, 20, stub.gotLimit)

	var body struct {
		Items []struct {
			MovementID string          `json:"movementId"`
			Number     string          `json:"number"`
			Payload    json.RawMessage `json:"payload"`
		} `json:"items"`
		TotalCount int `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 1, body.TotalCount)
	assert.Equal(t, movementID.String(), body.Items[0].MovementID)
	assert.Equal(t, "MOV-2026-00042", body.Items[0].Number)
	assert.JSONEq(t, `{"number":"MOV-2026-00042"}`, string(body.Items[0].Payload))
}
