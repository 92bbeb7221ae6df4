package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/ledger-service/dto"
	"github.com/commitcast/wager-ledger/internal/ledger-service/engine"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
)

type stubResolver struct {
	commitments map[string]domain.Commitment
}

func (s *stubResolver) Get(_ context.Context, id string) (domain.Commitment, error) {
	cm, ok := s.commitments[id]
	if !ok {
		return domain.Commitment{}, domain.ErrNotFound
	}
	return cm, nil
}

func newTestAPI(t *testing.T) (*httptest.Server, *repo.Memory) {
	t.Helper()

	store := repo.NewMemory()
	resolver := &stubResolver{commitments: map[string]domain.Commitment{
		"c1": {
			ID:       "c1",
			OwnerID:  "owner",
			Status:   domain.StatusPending,
			Deadline: time.Now().Add(time.Hour),
		},
	}}
	eng := engine.NewWagerEngine(zap.NewNop(), store, resolver, nil)

	ts := httptest.NewServer(NewServer(zap.NewNop(), eng, "").Router())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url, bearer string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func TestPlaceWagerEndpoint(t *testing.T) {
	ts, store := newTestAPI(t)

	res := doJSON(t, http.MethodPost, ts.URL+"/commitments/c1/bets", "u1",
		dto.PlaceWagerRequest{Direction: "will_complete", Amount: 50})
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var out dto.WagerResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Equal(t, "c1", out.CommitmentID)
	require.Equal(t, "u1", out.BettorID)
	require.EqualValues(t, 50, out.Amount)
	require.False(t, out.Resolved)
	require.Nil(t, out.Payout)

	require.EqualValues(t, 450, store.Balance("u1"))
}

func TestPlaceWagerErrors(t *testing.T) {
	ts, store := newTestAPI(t)
	store.SetBalance("poor", 10)

	tests := []struct {
		name       string
		bearer     string
		url        string
		body       dto.PlaceWagerRequest
		wantStatus int
	}{
		{"insufficient balance", "poor", "/commitments/c1/bets", dto.PlaceWagerRequest{Direction: "will_fail", Amount: 11}, http.StatusBadRequest},
		{"self bet", "owner", "/commitments/c1/bets", dto.PlaceWagerRequest{Direction: "will_complete", Amount: 5}, http.StatusBadRequest},
		{"invalid amount", "u1", "/commitments/c1/bets", dto.PlaceWagerRequest{Direction: "will_complete", Amount: 0}, http.StatusBadRequest},
		{"invalid direction", "u1", "/commitments/c1/bets", dto.PlaceWagerRequest{Direction: "sideways", Amount: 5}, http.StatusBadRequest},
		{"unknown commitment", "u1", "/commitments/nope/bets", dto.PlaceWagerRequest{Direction: "will_fail", Amount: 5}, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := doJSON(t, http.MethodPost, ts.URL+tc.url, tc.bearer, tc.body)
			defer res.Body.Close()
			require.Equal(t, tc.wantStatus, res.StatusCode)

			var out dto.ErrorResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
			require.NotEmpty(t, out.Detail)
		})
	}
}

func TestCancelWagerEndpoint(t *testing.T) {
	ts, store := newTestAPI(t)

	res := doJSON(t, http.MethodPost, ts.URL+"/commitments/c1/bets", "u1",
		dto.PlaceWagerRequest{Direction: "will_complete", Amount: 40})
	var placed dto.WagerResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&placed))
	res.Body.Close()

	// outro usuário não cancela aposta alheia
	res = doJSON(t, http.MethodDelete, ts.URL+"/bets/"+placed.ID, "u2", nil)
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodDelete, ts.URL+"/bets/"+placed.ID, "u1", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out dto.CancelResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Equal(t, "success", out.Status)
	require.EqualValues(t, 500, store.Balance("u1"))

	res = doJSON(t, http.MethodDelete, ts.URL+"/bets/"+placed.ID, "u1", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestListWagersEndpoint(t *testing.T) {
	ts, _ := newTestAPI(t)

	for _, u := range []string{"u1", "u2"} {
		res := doJSON(t, http.MethodPost, ts.URL+"/commitments/c1/bets", u,
			dto.PlaceWagerRequest{Direction: "will_fail", Amount: 5})
		require.Equal(t, http.StatusCreated, res.StatusCode)
		res.Body.Close()
	}

	res := doJSON(t, http.MethodGet, ts.URL+"/commitments/c1/bets", "viewer", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out []dto.WagerResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.Len(t, out, 2)
}

func TestBalanceEndpoint(t *testing.T) {
	ts, _ := newTestAPI(t)

	res := doJSON(t, http.MethodGet, ts.URL+"/me/balance", "fresh", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var out dto.BalanceResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	require.EqualValues(t, 500, out.Balance)
}

func TestAuthRequired(t *testing.T) {
	ts, _ := newTestAPI(t)

	res := doJSON(t, http.MethodGet, ts.URL+"/me/balance", "", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAuthWithAPIKey(t *testing.T) {
	store := repo.NewMemory()
	eng := engine.NewWagerEngine(zap.NewNop(), store, &stubResolver{}, nil)
	ts := httptest.NewServer(NewServer(zap.NewNop(), eng, "topsecret").Router())
	defer ts.Close()

	res := doJSON(t, http.MethodGet, ts.URL+"/me/balance", "u1:wrongkey", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res.Body.Close()

	res = doJSON(t, http.MethodGet, ts.URL+"/me/balance", "u1:topsecret", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}
