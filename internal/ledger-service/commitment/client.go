package commitment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

// Provider entrega a projeção atual de um commitment (status, deadline, dono).
type Provider interface {
	Get(ctx context.Context, id string) (domain.Commitment, error)
}

// Client busca commitments no serviço resolver via HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) Get(ctx context.Context, id string) (domain.Commitment, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/commitments/"+id, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return domain.Commitment{}, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return domain.Commitment{}, domain.ErrNotFound
	}
	if res.StatusCode >= 300 {
		return domain.Commitment{}, fmt.Errorf("resolver http %d", res.StatusCode)
	}

	var out domain.Commitment
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return domain.Commitment{}, err
	}
	return out, nil
}
