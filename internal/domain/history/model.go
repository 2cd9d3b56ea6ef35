package history

import (
	"context"
	"time"

	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
)

// Record is one saved scan.
type Record struct {
	ID        string           `json:"id" bson:"_id"`
	Result    diagnosis.Result `json:"result" bson:"result"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
}

// SaveRequest persists an explicit "Save Result" action. The photo travels
// with the request so the record can reference an uploaded copy.
type SaveRequest struct {
	Result      diagnosis.Result `json:"result"`
	ImageBase64 string           `json:"imageBase64,omitempty"`
	MimeType    string           `json:"mimeType,omitempty"`
}

// Repository abstracts the per-owner scan collection.
type Repository interface {
	Add(ctx context.Context, owner string, record Record) error
	Delete(ctx context.Context, owner, id string) error
	List(ctx context.Context, owner string) ([]Record, error)
}

// ObjectStorage persists uploaded crop photos; the key under which a photo
// is stored becomes the record's imageRef.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
	Delete(ctx context.Context, key string) error
}
