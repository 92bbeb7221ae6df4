package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/pkg/contracts/events"
)

type stubSettler struct{ resolved []domain.Wager }

func (s stubSettler) Settle(ctx context.Context, commitmentID string, outcome domain.CommitmentStatus) ([]domain.Wager, error) {
	return s.resolved, nil
}

type failingWriter struct{ calls int }

func (w *failingWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	w.calls++
	return errors.New("broker down")
}

type recordingBroadcast struct{ payloads [][]byte }

func (b *recordingBroadcast) Publish(ctx context.Context, channel string, payload []byte) error {
	b.payloads = append(b.payloads, payload)
	return nil
}

func resolvedWager(id, bettor string, amount, payout int64) domain.Wager {
	return domain.Wager{
		ID:        id,
		BettorID:  bettor,
		Amount:    amount,
		CreatedAt: time.Now(),
		Resolved:  true,
		Payout:    &payout,
	}
}

func TestBuildSettledEvent(t *testing.T) {
	resolved := []domain.Wager{
		resolvedWager("w1", "a", 30, 30),
		resolvedWager("w2", "b", 70, 70),
		resolvedWager("w3", "c", 100, -100),
	}

	out := buildSettledEvent("c1", "completed", resolved)

	require.Equal(t, "c1", out.CommitmentID)
	require.Equal(t, "completed", out.Outcome)
	require.EqualValues(t, 100, out.LoserPool)
	require.Len(t, out.Wagers, 3)

	// vencedor recebe stake + ganho; perdedor não recebe nada
	require.EqualValues(t, 60, out.Wagers[0].Credited)
	require.EqualValues(t, 140, out.Wagers[1].Credited)
	require.EqualValues(t, 0, out.Wagers[2].Credited)
}

// Falha no publish depois de liquidar não pode falhar o evento: a re-entrega
// encontraria o pool vazio e o resumo nunca seria republicado. O worker
// retenta, registra a perda e segue com o broadcast.
func TestProcessOnePublishFailureDoesNotFailEvent(t *testing.T) {
	writer := &failingWriter{}
	broadcast := &recordingBroadcast{}
	var settled int
	var phases []string

	p := &Processor{
		Log: zap.NewNop(),
		Settler: stubSettler{resolved: []domain.Wager{
			resolvedWager("w1", "a", 30, 30),
			resolvedWager("w2", "b", 30, -30),
		}},
		SettledWriter: writer,
		Broadcast:     broadcast,
		Channel:       "ch",
		OnSettled:     func() { settled++ },
		OnError:       func(phase string) { phases = append(phases, phase) },
	}

	err := p.processOne(context.Background(), &events.CommitmentResolved{
		CommitmentID: "c1",
		Outcome:      "completed",
	})
	require.NoError(t, err)

	require.Equal(t, 3, writer.calls)
	require.Equal(t, []string{"publish"}, phases)
	require.Equal(t, 1, settled)
	require.Len(t, broadcast.payloads, 1)
}

func TestBuildSettledEventRefund(t *testing.T) {
	resolved := []domain.Wager{
		resolvedWager("w1", "a", 50, 0),
		resolvedWager("w2", "b", 80, 0),
	}

	out := buildSettledEvent("c2", "expired", resolved)

	require.EqualValues(t, 0, out.LoserPool)
	require.EqualValues(t, 50, out.Wagers[0].Credited)
	require.EqualValues(t, 80, out.Wagers[1].Credited)
}
