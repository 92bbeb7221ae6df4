package events

// Evento publicado pelo commitment resolver no tópico "commitment_resolved"
// quando um commitment atinge status terminal (completed | failed | expired).
// O resolver garante no máximo um evento por transição; a liquidação é
// idempotente de qualquer forma.
type CommitmentResolved struct {
	CommitmentID string `json:"commitment_id"`
	Outcome      string `json:"outcome"` // "completed" | "failed" | "expired"
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
