package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticToken() TokenSource {
	return func() (string, error) { return "svc-token", nil }
}

func TestLedgerClientDue(t *testing.T) {
	sale := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/due", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"data":{"sales":["` + sale.String() + `"],"proposals":[]}}`))
	}))
	defer srv.Close()

	client := NewLedgerClient(srv.URL+"/", staticToken(), zap.NewNop())
	due, err := client.Due(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sale}, due.Sales)
	assert.Empty(t, due.Proposals)
}

func TestLedgerClientStatuses(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   error
		anyErr    bool
	}{
		{name: "ok", statuses: []int{http.StatusOK}, wantCalls: 1},
		{name: "conflict is settled", statuses: []int{http.StatusConflict}, wantCalls: 1, wantErr: ErrAlreadySettled},
		{name: "forbidden is final", statuses: []int{http.StatusForbidden}, wantCalls: 1, anyErr: true},
		{name: "server error retried", statuses: []int{http.StatusBadGateway, http.StatusOK}, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(tt.statuses[int(n)-1])
			}))
			defer srv.Close()

			client := NewLedgerClient(srv.URL, staticToken(), zap.NewNop())
			err := client.Conclude(context.Background(), uuid.New())
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
