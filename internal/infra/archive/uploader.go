package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// ExExType identifies the payload purpose on every upload.
const ExExType = "Arweave-Data-Uploader"

// DataItem is a signed-to-be archive write.
type DataItem struct {
	Data []byte
	Tags []domain.Tag
}

// Transport sends a data item to the archival network and returns its id.
type Transport interface {
	Send(ctx context.Context, item DataItem) (string, error)
}

// Uploader writes payloads to the archive with the fixed protocol tags.
// It is not idempotent: every call is a separate billed write.
type Uploader struct {
	transport Transport
	protocol  string
}

func NewUploader(transport Transport, protocol string) *Uploader {
	return &Uploader{transport: transport, protocol: protocol}
}

// FixedTags are prepended to every upload.
func (u *Uploader) FixedTags() []domain.Tag {
	return []domain.Tag{
		{Name: domain.TagProtocol, Value: u.protocol},
		{Name: domain.TagExExType, Value: ExExType},
	}
}

// Upload sends payload with the fixed tags followed by tags, in order.
func (u *Uploader) Upload(ctx context.Context, payload []byte, tags []domain.Tag) (string, error) {
	all := append(u.FixedTags(), tags...)

	id, err := u.transport.Send(ctx, DataItem{Data: payload, Tags: all})
	if err != nil {
		if !errors.Is(err, domain.ErrUploadRejected) {
			err = fmt.Errorf("%w: %w", domain.ErrUploadRejected, err)
		}
		return "", fmt.Errorf("upload %d bytes: %w", len(payload), err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty archive id", domain.ErrUploadRejected)
	}
	return id, nil
}
