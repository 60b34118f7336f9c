package storage

import (
	"context"

	"github.com/openmms/mmsd/internal/core/domain"
)

// ResultStore adapts a MessageRepository to the reporter's persistence
// contract.
type ResultStore struct {
	repo MessageRepository

	// autoPersist controls whether downloaded message bodies are written
	// to storage. When off, the payload still reaches the caller via the
	// delivery channel; only the status row is updated.
	autoPersist bool
}

func NewResultStore(repo MessageRepository, autoPersist bool) *ResultStore {
	return &ResultStore{repo: repo, autoPersist: autoPersist}
}

// UpdateStatus records the terminal result for a request.
func (s *ResultStore) UpdateStatus(ctx context.Context, req *domain.Request, code domain.ResultCode, response []byte) error {
	if req.Kind == domain.KindDownload && !s.autoPersist {
		response = nil
	}
	return s.repo.UpdateResult(ctx, req.MessageID, domain.StatusForResult(code), code, response)
}
