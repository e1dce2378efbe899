package stock

import (
	"context"

	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/erp"
)

type memoState int

const (
	memoUnknown memoState = iota
	memoResolved
	memoFailed
)

type memoEntry struct {
	state   memoState
	payload []byte
}

// AttachmentMemo caches attachment lookups for the duration of one run.
// Failures are cached too: a subject that failed once is not fetched again
// within the run, because every item of the same subject would otherwise
// repeat the identical remote failure.
type AttachmentMemo struct {
	fetcher *erp.Fetcher
	logger  *zap.Logger
	entries map[string]memoEntry
}

func NewAttachmentMemo(fetcher *erp.Fetcher, logger *zap.Logger) *AttachmentMemo {
	return &AttachmentMemo{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]memoEntry),
	}
}

// Get returns the attachment payload for a subject, fetching at most once per
// run. The boolean is false when the subject is known to have no retrievable
// attachment.
func (m *AttachmentMemo) Get(ctx context.Context, subjectID string) ([]byte, bool) {
	if entry, ok := m.entries[subjectID]; ok {
		return entry.payload, entry.state == memoResolved
	}
	payload, err := m.fetcher.Attachment(ctx, subjectID)
	if err != nil {
		m.logger.Debug("attachment fetch failed, caching miss",
			zap.String("subject", subjectID), zap.Error(err))
		m.entries[subjectID] = memoEntry{state: memoFailed}
		return nil, false
	}
	m.entries[subjectID] = memoEntry{state: memoResolved, payload: payload}
	return payload, true
}
